package llm

import "context"

// Backend completes one prompt and returns the model's raw text reply.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Capability says whether an LLM pass can run at all. It is either
// Available or Unavailable; callers switch on the concrete type.
type Capability interface {
	capability()
}

// Available carries a configured backend.
type Available struct {
	Backend Backend
}

// Unavailable records why no backend was configured.
type Unavailable struct {
	Reason string
}

func (Available) capability()   {}
func (Unavailable) capability() {}

// CapabilityOf wraps b, or returns Unavailable with reason when b is nil.
func CapabilityOf(b Backend, reason string) Capability {
	if b == nil {
		return Unavailable{Reason: reason}
	}
	return Available{Backend: b}
}
