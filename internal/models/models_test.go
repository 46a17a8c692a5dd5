package models

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTaskStatus_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value TaskStatus
		valid bool
		open  bool
	}{
		{"not_started", TaskStatusNotStarted, true, true},
		{"in_progress", TaskStatusInProgress, true, true},
		{"waiting", TaskStatusWaiting, true, true},
		{"done", TaskStatusDone, true, false},
		{"archived", TaskStatusArchived, true, false},
		{"invalid", TaskStatus("pending"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.value.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.value.IsOpen(); got != tt.open {
				t.Errorf("IsOpen() = %v, want %v", got, tt.open)
			}
		})
	}
}

func TestTaskView_Valid(t *testing.T) {
	t.Parallel()

	for _, v := range []TaskView{"", TaskViewToday, TaskViewUpcoming, TaskViewNext, TaskViewInbox} {
		if !v.Valid() {
			t.Errorf("expected %q to be valid", v)
		}
	}
	if TaskView("someday").Valid() {
		t.Error("expected someday to be invalid")
	}
}

func TestNormalizeTagNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"trims", []string{"  work ", "home"}, []string{"work", "home"}},
		{"drops empty", []string{"", "  ", "a"}, []string{"a"}},
		{"dedupes case-insensitively", []string{"Work", "work", "WORK", "play"}, []string{"Work", "play"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NormalizeTagNames(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTagNames(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNote_IsPersistedAndPayload(t *testing.T) {
	t.Parallel()

	draft := Note{Title: "t", Content: "c", Tags: []Tag{{Name: "x"}, {Name: "y"}}}
	if draft.IsPersisted() {
		t.Error("draft note should not be persisted")
	}
	p := draft.Payload()
	if p.Title == nil || *p.Title != "t" || p.Content == nil || *p.Content != "c" {
		t.Errorf("unexpected payload %+v", p)
	}
	if p.ProjectID != nil {
		t.Error("expected no project id")
	}
	if !reflect.DeepEqual(p.Tags, []string{"x", "y"}) {
		t.Errorf("tags = %v", p.Tags)
	}

	projectID := uuid.New()
	saved := Note{ID: uuid.New(), Content: "c", ProjectID: uuid.NullUUID{UUID: projectID, Valid: true}}
	if !saved.IsPersisted() {
		t.Error("note with id should be persisted")
	}
	if p := saved.Payload(); p.ProjectID == nil || *p.ProjectID != projectID {
		t.Errorf("project id not carried: %+v", p)
	}
}

func TestTask_PayloadClearsDueDateOnlyForPersisted(t *testing.T) {
	t.Parallel()

	if p := (Task{Name: "draft"}).Payload(); p.ClearDue {
		t.Error("draft without due date should not clear")
	}
	if p := (Task{ID: uuid.New(), Name: "saved"}).Payload(); !p.ClearDue {
		t.Error("persisted task without due date should clear")
	}
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p := (Task{ID: uuid.New(), Name: "saved", DueDate: &due, Status: TaskStatusDone}).Payload()
	if p.ClearDue || p.DueDate == nil || !p.DueDate.Equal(due) {
		t.Errorf("unexpected due handling: %+v", p)
	}
	if p.Status == nil || *p.Status != TaskStatusDone {
		t.Errorf("status not carried: %+v", p.Status)
	}
}

func TestSplitOrigins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "https://a.example.com", []string{"https://a.example.com"}},
		{"comma", "https://a.com, https://b.com", []string{"https://a.com", "https://b.com"}},
		{"repeats keep first order", "y, x, y", []string{"y", "x"}},
		{"blanks", "a,, ,b,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SplitOrigins(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitOrigins(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			c := CorsConfig{AllowedOrigins: tt.raw}
			if got := c.Origins(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Origins() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentity_NormalizedEmail(t *testing.T) {
	t.Parallel()

	id := Identity{Email: "  Ada@Example.COM "}
	if got := id.NormalizedEmail(); got != "ada@example.com" {
		t.Errorf("NormalizedEmail() = %q", got)
	}
}

func TestTagStatistics_Ranked(t *testing.T) {
	t.Parallel()

	s := PendingTagStatistics(uuid.New())
	if !s.Tainted || len(s.Ranked()) != 0 {
		t.Fatalf("pending statistics should be tainted and empty: %+v", s)
	}
	s.Usage = map[string]TagUsage{
		"b":    {Total: 2},
		"a":    {Total: 2},
		"home": {Total: 5},
		"z":    {Total: 1},
	}
	want := []string{"home", "a", "b", "z"}
	if got := s.Ranked(); !reflect.DeepEqual(got, want) {
		t.Errorf("Ranked() = %v, want %v", got, want)
	}
}

func TestUser_DisplayName(t *testing.T) {
	t.Parallel()

	name, blank := "Ada", "  "
	tests := []struct {
		name string
		user User
		want string
	}{
		{"named", User{Email: "a@example.com", Name: &name}, "Ada"},
		{"no name", User{Email: "a@example.com"}, "a@example.com"},
		{"blank name", User{Email: "a@example.com", Name: &blank}, "a@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.user.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOIDCConfig_Accessors(t *testing.T) {
	t.Parallel()

	var empty OIDCConfig
	if empty.KeySetURL() != "" || empty.Secret() != "" || empty.LoginBase() != "" {
		t.Errorf("unset fields should read as empty: %+v", empty)
	}

	jwks, secret := " https://idp.example.com/keys ", "s3cret"
	tests := []struct {
		domain string
		want   string
	}{
		{"auth.example.com", "https://auth.example.com"},
		{"http://localhost:9000/", "http://localhost:9000"},
		{"   ", ""},
	}
	for _, tt := range tests {
		domain := tt.domain
		c := OIDCConfig{JWKSUrl: &jwks, ClientSecret: &secret, Domain: &domain}
		if got := c.LoginBase(); got != tt.want {
			t.Errorf("LoginBase(%q) = %q, want %q", tt.domain, got, tt.want)
		}
		if c.KeySetURL() != "https://idp.example.com/keys" || c.Secret() != secret {
			t.Errorf("unexpected accessors for %+v", c)
		}
	}
}
