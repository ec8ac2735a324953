package types

// Model represents a model file found on disk.
type Model struct {
	// Identifier of the model (its file name).
	// example: 7B.q4_0.bin
	ID string `json:"id" example:"7B.q4_0.bin"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/7B.q4_0.bin
	Path string `json:"path" example:"/home/user/models/7B.q4_0.bin"`
	// Size of the file in bytes.
	// example: 4212859520
	SizeBytes int64 `json:"size_bytes" example:"4212859520"`
	// File format guessed from the extension (ggml or gguf).
	// example: ggml
	Format string `json:"format" example:"ggml"`
}

// SavedSession describes a valid saved session snapshot.
type SavedSession struct {
	// example: 4f9c2a51b3d84a0f9f1c4e2b7a6d5c3e
	ID string `json:"id"`
	// example: Write a haiku about the ocean.
	Title string `json:"title"`
	// Model the snapshot was taken with.
	ModelPath string `json:"model_path"`
	// Save time in unix milliseconds.
	// example: 1700000000000
	Date int64 `json:"date"`
}
