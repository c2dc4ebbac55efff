package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestVersionsAreOrderedAndUnique(t *testing.T) {
	m := NewMigrator(nil, zerolog.Nop())

	names, err := m.Versions()
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("no embedded migrations")
	}

	seen := map[string]bool{}
	for i, name := range names {
		if i > 0 && names[i-1] >= name {
			t.Errorf("migrations out of order: %s before %s", names[i-1], name)
		}
		version := strings.Split(name, "_")[0]
		if seen[version] {
			t.Errorf("duplicate migration version %s", version)
		}
		seen[version] = true
	}
}

func TestQuestionNumberConstraintIsDeferred(t *testing.T) {
	m := NewMigrator(nil, zerolog.Nop())

	content, err := fs.ReadFile(m.files, "003_questions.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	sql := string(content)
	if !strings.Contains(sql, "UNIQUE (assessment_id, question_number)") ||
		!strings.Contains(sql, "DEFERRABLE INITIALLY DEFERRED") {
		t.Error("question numbering constraint must be deferrable so renumbering can pass through duplicates")
	}
}
