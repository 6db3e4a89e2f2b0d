package application_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/ericfisherdev/deviceauth/internal/domain/model"
	"github.com/ericfisherdev/deviceauth/internal/domain/port/driven"
)

// --- Mock implementations ---

// mockCredentialStore is an in-memory CredentialStore. Identifiers listed in
// undecryptable behave like rows whose ciphertext no longer opens.
type mockCredentialStore struct {
	mu            sync.Mutex
	creds         map[string]model.Credential
	undecryptable map[string]bool

	getErr    error
	globalErr error
	setErr    error
	deleteErr error
	listErr   error

	getCalls    []string
	deleteCalls []string
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{
		creds:         make(map[string]model.Credential),
		undecryptable: make(map[string]bool),
	}
}

func (m *mockCredentialStore) put(cred model.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.Identifier] = cred
}

func (m *mockCredentialStore) corrupt(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undecryptable[id] = true
}

func (m *mockCredentialStore) Get(_ context.Context, id string) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls = append(m.getCalls, id)
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.lookup(id)
}

func (m *mockCredentialStore) GetGlobal(_ context.Context) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.globalErr != nil {
		return nil, m.globalErr
	}
	return m.lookup(model.GlobalIdentifier)
}

func (m *mockCredentialStore) lookup(id string) (*model.Credential, error) {
	cred, ok := m.creds[id]
	if !ok {
		return nil, nil
	}
	if m.undecryptable[id] {
		return nil, &driven.DecryptionError{Reason: "authentication failed"}
	}
	return &cred, nil
}

func (m *mockCredentialStore) Set(_ context.Context, id, username, password, lastSeenIP string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	cred := m.creds[id]
	cred.Identifier = id
	cred.Username = username
	cred.Password = password
	if lastSeenIP != "" {
		cred.LastSeenIP = lastSeenIP
	}
	m.creds[id] = cred
	delete(m.undecryptable, id)
	return nil
}

func (m *mockCredentialStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls = append(m.deleteCalls, id)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.creds, id)
	delete(m.undecryptable, id)
	return nil
}

func (m *mockCredentialStore) ListAll(_ context.Context) ([]model.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}

	ids := make([]string, 0, len(m.creds))
	for id := range m.creds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]model.CredentialRecord, 0, len(ids))
	for _, id := range ids {
		if m.undecryptable[id] {
			records = append(records, model.Undecryptable{Identifier: id})
			continue
		}
		records = append(records, model.Decoded{Credential: m.creds[id]})
	}
	return records, nil
}

// recordingListener captures every change notification.
type recordingListener struct {
	mu  sync.Mutex
	ids []string
}

func (l *recordingListener) CredentialChanged(_ context.Context, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
}

func (l *recordingListener) calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ids...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
