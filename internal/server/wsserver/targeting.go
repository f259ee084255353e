package wsserver

import "github.com/yndnr/ovecore-go/internal/core/domain"

// accepts reports whether a socket with registration reg receives env.
//
// Clock broadcasts reach every socket. Section sockets receive only
// envelopes addressed to their section. Space sockets receive lifecycle
// messages whose geometry covers their client, and unscoped application
// traffic. Unregistered sockets receive nothing else.
func accepts(reg *domain.Registration, env *domain.Envelope, kind domain.Kind, msg *domain.CoreMessage) bool {
	switch kind {
	case domain.KindClockDiff:
		return true
	case domain.KindCore:
		switch {
		case reg.IsSection():
			return env.SectionID != "" && reg.SectionID == env.SectionID
		case reg.IsSpace():
			return coversClient(msg, reg)
		}
	case domain.KindApp:
		if env.SectionID != "" {
			return reg.IsSection() && reg.SectionID == env.SectionID
		}
		return reg.IsSection() || reg.IsSpace()
	}
	return false
}

// coversClient reports whether a lifecycle message concerns the client of
// a space socket. Messages without geometry concern every client.
func coversClient(msg *domain.CoreMessage, reg *domain.Registration) bool {
	if msg == nil || len(msg.Spaces) == 0 {
		return true
	}
	layouts, ok := msg.Spaces[reg.Space]
	if !ok {
		return false
	}
	client := *reg.Client
	if client < 0 || client >= len(layouts) {
		return false
	}
	l := layouts[client]
	return !l.Empty && !l.IsDegenerate()
}
