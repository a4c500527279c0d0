package message

import "maps"

// Builder accumulates a DCP message. The @context is preset to the DCP
// context document.
type Builder struct {
	msg map[string]any
}

// NewBuilder starts a message.
func NewBuilder() *Builder {
	return &Builder{msg: map[string]any{
		ContextKey: []string{DCPContext},
	}}
}

// Type sets the message type.
func (b *Builder) Type(t string) *Builder {
	b.msg[TypeKey] = t
	return b
}

// Property sets an arbitrary top-level property.
func (b *Builder) Property(key string, value any) *Builder {
	b.msg[key] = value
	return b
}

// Build returns the message. A missing type is a programming error.
func (b *Builder) Build() map[string]any {
	if t, _ := b.msg[TypeKey].(string); t == "" {
		panic("message type is required")
	}
	return maps.Clone(b.msg)
}

// Base returns a message using the DCP namespace as its context, the form
// used for responses.
func Base(messageType string) map[string]any {
	return map[string]any{
		ContextKey: []string{DCPNamespace},
		TypeKey:    messageType,
	}
}
