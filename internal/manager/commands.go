package manager

import (
	"fmt"

	"fastllamad/internal/command"
	"fastllamad/internal/common/fsutil"
	"fastllamad/internal/message"
	"fastllamad/internal/native"
	"fastllamad/internal/protocol"
)

func (s *Session) handleCommand(in protocol.InvokeCommand) {
	inv, err := command.Validate(in.Command, in.Args)
	if err != nil {
		inboundRejected.WithLabelValues("command").Inc()
		s.notifyError(err.Error())
		return
	}
	if inv.Name == command.Stop {
		s.stop()
		return
	}
	if inv.Name == command.Attach {
		if p := inv.String("path"); !fsutil.IsFile(p) {
			s.notifyError(fmt.Sprintf("Adapter file '%s' does not exist", p))
			return
		}
	}
	ctx, ok := s.admit()
	if !ok {
		return
	}
	s.runWorker(StateBusy, func() {
		if err := s.runCommand(ctx, inv); err != nil {
			commandsTotal.WithLabelValues(inv.Name, "failure").Inc()
			s.log.Warn().Err(err).Str("command", inv.Name).Msg("command failed")
			if command.IsValidation(err) {
				s.notifyError(err.Error())
				return
			}
			s.notifyError(fmt.Sprintf("Command '%s' failed: %v", inv.Name, err))
			return
		}
		commandsTotal.WithLabelValues(inv.Name, "success").Inc()
		s.notifySuccess(fmt.Sprintf("Command '%s' executed successfully", inv.Name))
	})
}

func (s *Session) runCommand(ctx *native.Context, inv command.Invocation) error {
	switch inv.Name {
	case command.Set:
		cur := s.Params()
		next, err := cur.Apply(inv)
		if err != nil {
			return err
		}
		if inv.Has("stop_words") {
			if err := ctx.SetStopWords(next.StopWords...); err != nil {
				return err
			}
		}
		s.mu.Lock()
		s.params = next
		s.mu.Unlock()
		return nil
	case command.Reset:
		return ctx.Reset()
	case command.Attach:
		return ctx.AttachAdapter(inv.String("path"))
	case command.Detach:
		return ctx.DetachAdapter()
	case command.Perplexity:
		v, err := ctx.Perplexity(inv.String("text"))
		if err != nil {
			return err
		}
		s.send(s.msgs.AddSystem(message.SystemInfo, "perplexity", fmt.Sprintf("Perplexity: %.4f", v)))
		return nil
	case command.Embeddings:
		emb, err := ctx.Embeddings()
		if err != nil {
			return err
		}
		s.send(s.msgs.AddSystem(message.SystemInfo, "embeddings", fmt.Sprintf("Embeddings: %d values", len(emb))))
		return nil
	}
	return &command.ValidationError{Command: inv.Name, Reason: "command is not supported here"}
}

// stop interrupts the running generation. It is the only command accepted
// while the engine is busy.
func (s *Session) stop() {
	s.mu.Lock()
	ctx, st := s.ctx, s.state
	s.mu.Unlock()
	if ctx == nil || st != StateGenerating || !ctx.Interrupt() {
		s.notifyError(msgNothingToStop)
		return
	}
	commandsTotal.WithLabelValues(command.Stop, "success").Inc()
	s.notifySuccess(fmt.Sprintf("Command '%s' executed successfully", command.Stop))
}
