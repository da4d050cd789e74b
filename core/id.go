package core

import (
	"github.com/google/uuid"

	"pkt.systems/chatdeck/schema"
)

// Identifiers are opaque and collision-resistant; an id is never reissued
// within a process lifetime.

func newRequestID() schema.RequestID {
	return schema.RequestID(uuid.NewString())
}

func newTabID() schema.TabID {
	return schema.TabID(uuid.NewString())
}
