package storage

import (
	"inkwell-client/internal/model"
)

// Store keeps chat sessions for the dev backend.
type Store interface {
	CreateSession(session *model.Session) error
	GetSession(sessionID string) (*model.Session, error)
	DeleteSession(sessionID string) error
	ListSessions() ([]*model.Session, error)

	AppendTurns(sessionID string, turns ...model.Turn) error
	GetTurns(sessionID string) ([]model.Turn, error)

	Init() error
	Close() error
}
