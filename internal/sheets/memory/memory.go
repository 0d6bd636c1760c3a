// Package memory keeps a transaction mirror and saved exports in process memory.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"carteira/internal/core"
	"carteira/internal/export"
	ports "carteira/internal/sheets"
)

var (
	_ ports.TransactionMirror = (*Mirror)(nil)
	_ export.Sink             = (*Mirror)(nil)
)

type Mirror struct {
	mu      sync.Mutex
	order   []string
	rows    map[string]core.Transaction
	tabs    map[string]export.File
	deleted []string
}

func New() *Mirror {
	return &Mirror{
		rows: make(map[string]core.Transaction),
		tabs: make(map[string]export.File),
	}
}

// UpsertTransaction replaces the row of tx.ID or appends a new one.
func (m *Mirror) UpsertTransaction(_ context.Context, tx core.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("mirror row without transaction id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[tx.ID]; !ok {
		m.order = append(m.order, tx.ID)
	}
	m.rows[tx.ID] = tx
	return nil
}

// DeleteTransaction removes the row of id. A missing row is not an error.
func (m *Mirror) DeleteTransaction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	if _, ok := m.rows[id]; !ok {
		return nil
	}
	delete(m.rows, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Save stores f under a tab named after the file, replacing an earlier save.
func (m *Mirror) Save(_ context.Context, f export.File) (string, error) {
	title := strings.TrimSuffix(f.Name, ".csv")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[title] = f
	return "mem:" + title, nil
}

// Rows returns the mirrored transactions in insertion order.
func (m *Mirror) Rows() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Transaction, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out
}

// Deleted lists every id passed to DeleteTransaction, including missing ones.
func (m *Mirror) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// Tab returns the file saved under title.
func (m *Mirror) Tab(title string) (export.File, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.tabs[title]
	return f, ok
}
