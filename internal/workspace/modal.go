// Package workspace holds view state for the smart-notes clients: which
// dialog is open and for what, the in-memory record lists and the search
// filter. Rendering is left to the caller.
package workspace

// ModalMode is the state of a modal dialog.
type ModalMode int

const (
	ModalClosed ModalMode = iota
	ModalCreate
	ModalEdit
)

func (m ModalMode) String() string {
	switch m {
	case ModalCreate:
		return "create"
	case ModalEdit:
		return "edit"
	default:
		return "closed"
	}
}

// Modal is one dialog family. It is closed, open for a new record, or open
// to edit an existing one; the record being worked on only exists while it
// is open.
type Modal[T any] struct {
	mode   ModalMode
	record T
}

// OpenForCreate opens the modal with draft as the starting point of a new record.
func (m *Modal[T]) OpenForCreate(draft T) {
	m.mode = ModalCreate
	m.record = draft
}

// OpenForEdit opens the modal on an existing record.
func (m *Modal[T]) OpenForEdit(record T) {
	m.mode = ModalEdit
	m.record = record
}

// Close closes the modal and forgets its record.
func (m *Modal[T]) Close() {
	var zero T
	m.mode = ModalClosed
	m.record = zero
}

// Mode returns the modal's state.
func (m *Modal[T]) Mode() ModalMode { return m.mode }

// IsOpen reports whether the modal is open in either mode.
func (m *Modal[T]) IsOpen() bool { return m.mode != ModalClosed }

// Record returns the record being created or edited. ok is false when the
// modal is closed.
func (m *Modal[T]) Record() (record T, ok bool) {
	return m.record, m.mode != ModalClosed
}

// Edit applies fn to the open record. It does nothing when closed.
func (m *Modal[T]) Edit(fn func(*T)) {
	if m.mode != ModalClosed {
		fn(&m.record)
	}
}
