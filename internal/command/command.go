// Package command defines the control commands a client may invoke on a
// session and validates invocations against them.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ArgType is the declared type of a command argument.
type ArgType string

const (
	TypeBool   ArgType = "boolean"
	TypeString ArgType = "string"
	TypeInt    ArgType = "int"
	TypeFloat  ArgType = "float"
)

// Valid reports whether t is a declared argument type.
func (t ArgType) Valid() bool {
	switch t {
	case TypeBool, TypeString, TypeInt, TypeFloat:
		return true
	}
	return false
}

// Command names.
const (
	Set        = "set"
	Reset      = "reset"
	Attach     = "attach"
	Detach     = "detach"
	Perplexity = "perplexity"
	Embeddings = "embeddings"
	Stop       = "stop"
)

// Arg is one named, typed argument as sent by the client.
type Arg struct {
	Name  string  `json:"name"`
	Type  ArgType `json:"type"`
	Value any     `json:"value,omitempty"`
}

// ArgDef declares an accepted argument.
type ArgDef struct {
	Name     string
	Type     ArgType
	Required bool
}

// Def declares a command.
type Def struct {
	Name string
	Args []ArgDef
	// WhileBusy marks commands accepted while the engine is running.
	WhileBusy bool
}

// Table lists every supported command.
var Table = []Def{
	{Name: Set, Args: []ArgDef{
		{Name: "max_gen_token_length", Type: TypeInt},
		{Name: "top_k", Type: TypeInt},
		{Name: "top_p", Type: TypeFloat},
		{Name: "temp", Type: TypeFloat},
		{Name: "repeat_penalty", Type: TypeFloat},
		{Name: "p_prefix", Type: TypeString},
		{Name: "p_suffix", Type: TypeString},
		{Name: "stop_words", Type: TypeString},
		{Name: "seed", Type: TypeInt},
	}},
	{Name: Reset},
	{Name: Attach, Args: []ArgDef{{Name: "path", Type: TypeString, Required: true}}},
	{Name: Detach},
	{Name: Perplexity, Args: []ArgDef{{Name: "text", Type: TypeString, Required: true}}},
	{Name: Embeddings},
	{Name: Stop, WhileBusy: true},
}

// Lookup finds a command by name.
func Lookup(name string) (Def, bool) {
	for _, s := range Table {
		if s.Name == name {
			return s, true
		}
	}
	return Def{}, false
}

// Info describes a command for clients.
type Info struct {
	Name string `json:"name"`
	Args []Arg  `json:"args"`
}

// Describe returns the command table in wire form.
func Describe() []Info {
	out := make([]Info, 0, len(Table))
	for _, s := range Table {
		args := make([]Arg, 0, len(s.Args))
		for _, a := range s.Args {
			args = append(args, Arg{Name: a.Name, Type: a.Type})
		}
		out = append(out, Info{Name: s.Name, Args: args})
	}
	return out
}

// ValidationError explains why an invocation was rejected.
type ValidationError struct {
	Command string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Command == "" {
		return e.Reason
	}
	return fmt.Sprintf("command '%s': %s", e.Command, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Invocation is a validated command with typed argument values:
// bool, string, int or float64.
type Invocation struct {
	Name   string
	Values map[string]any
}

// Has reports whether name was supplied.
func (inv Invocation) Has(name string) bool {
	_, ok := inv.Values[name]
	return ok
}

// String returns a string argument.
func (inv Invocation) String(name string) string {
	s, _ := inv.Values[name].(string)
	return s
}

// Int returns an int argument.
func (inv Invocation) Int(name string) int {
	n, _ := inv.Values[name].(int)
	return n
}

// Float returns a float argument.
func (inv Invocation) Float(name string) float64 {
	f, _ := inv.Values[name].(float64)
	return f
}

// Bool returns a boolean argument.
func (inv Invocation) Bool(name string) bool {
	b, _ := inv.Values[name].(bool)
	return b
}

// Validate checks every argument against the table. Either all arguments
// are accepted or an error is returned.
func Validate(name string, args []Arg) (Invocation, error) {
	def, ok := Lookup(name)
	if !ok {
		return Invocation{}, &ValidationError{Reason: fmt.Sprintf("unknown command '%s'", name)}
	}
	inv := Invocation{Name: name, Values: make(map[string]any, len(args))}
	for _, a := range args {
		as, ok := def.arg(a.Name)
		if !ok {
			return Invocation{}, &ValidationError{Command: name, Reason: fmt.Sprintf("unknown argument '%s'", a.Name)}
		}
		if inv.Has(a.Name) {
			return Invocation{}, &ValidationError{Command: name, Reason: fmt.Sprintf("duplicate argument '%s'", a.Name)}
		}
		if a.Type != as.Type {
			return Invocation{}, &ValidationError{Command: name, Reason: fmt.Sprintf("argument '%s' must be of type %s, got %q", a.Name, as.Type, a.Type)}
		}
		v, err := coerce(as.Type, a.Value)
		if err != nil {
			return Invocation{}, &ValidationError{Command: name, Reason: fmt.Sprintf("argument '%s': %v", a.Name, err)}
		}
		inv.Values[a.Name] = v
	}
	for _, as := range def.Args {
		if as.Required && !inv.Has(as.Name) {
			return Invocation{}, &ValidationError{Command: name, Reason: fmt.Sprintf("argument '%s' is required", as.Name)}
		}
	}
	return inv, nil
}

func (s Def) arg(name string) (ArgDef, bool) {
	for _, a := range s.Args {
		if a.Name == name {
			return a, true
		}
	}
	return ArgDef{}, false
}

func coerce(t ArgType, v any) (any, error) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", n)
		}
		v = f
	}
	switch t {
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case float64:
			if n == math.Trunc(n) && math.Abs(n) <= math.MaxInt32 {
				return int(n), nil
			}
			return nil, fmt.Errorf("value %v is not an integer", n)
		}
	case TypeFloat:
		switch n := v.(type) {
		case float64:
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return nil, fmt.Errorf("value %v is not finite", n)
			}
			return n, nil
		case int:
			return float64(n), nil
		}
	}
	return nil, fmt.Errorf("value %v (%T) is not a %s", v, v, t)
}
