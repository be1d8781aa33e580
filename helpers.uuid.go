package main

import (
	"github.com/gofrs/uuid"
)

var _ UIDGenerator = (*IDsHandler)(nil) // ensure IDsHandler implements UIDGenerator.

// UIDGenerator is an interface for getting a request uid.
type UIDGenerator interface {
	Generate(prefix string) string
}

// IDsHandler implements the UIDGenerator interface.
type IDsHandler struct{}

// NewIDsHandler returns a ready to use IDsHandler.
func NewIDsHandler() *IDsHandler {
	return &IDsHandler{}
}

// Generate provides a random unique identifier. It falls
// back to the nil uuid if the random source is exhausted.
func (idh *IDsHandler) Generate(prefix string) string {
	id, err := uuid.NewV4()
	if err != nil {
		id = uuid.Nil
	}
	return prefix + ":" + id.String()
}
