package migration

import (
	"context"
	"fmt"

	"gradebook/internal/model"
	"gradebook/internal/repository"
)

// Defaults returns the gradebook schema history in order.
func Defaults() []Migration {
	return []Migration{
		initialSchema,
		addSemester,
		addExamDescriptionGradeComment,
		dropExamCompletedFlag,
	}
}

var initialSchema = Migration{
	Timestamp: 1700000000000,
	Name:      "InitialSchema",
	Up: []string{
		`CREATE TABLE school (
  id              TEXT    PRIMARY KEY,
  created_at      TEXT    NOT NULL,
  updated_at      TEXT    NOT NULL,
  version         INTEGER NOT NULL DEFAULT 1,
  app_instance_id TEXT    NOT NULL DEFAULT '',
  name            TEXT    NOT NULL CHECK (length(name) BETWEEN 1 AND 255)
)`,
		`CREATE TABLE subject (
  id              TEXT    PRIMARY KEY,
  created_at      TEXT    NOT NULL,
  updated_at      TEXT    NOT NULL,
  version         INTEGER NOT NULL DEFAULT 1,
  app_instance_id TEXT    NOT NULL DEFAULT '',
  name            TEXT    NOT NULL CHECK (length(name) BETWEEN 1 AND 255),
  teacher         TEXT    NOT NULL DEFAULT '',
  school_id       TEXT    NOT NULL REFERENCES school (id) ON DELETE CASCADE
)`,
		`CREATE INDEX idx_subject_school_id ON subject (school_id)`,
		`CREATE TABLE exam (
  id              TEXT    PRIMARY KEY,
  created_at      TEXT    NOT NULL,
  updated_at      TEXT    NOT NULL,
  version         INTEGER NOT NULL DEFAULT 1,
  app_instance_id TEXT    NOT NULL DEFAULT '',
  name            TEXT    NOT NULL CHECK (length(name) BETWEEN 1 AND 255),
  date            TEXT    NOT NULL,
  is_completed    INTEGER NOT NULL DEFAULT 0,
  subject_id      TEXT    NOT NULL REFERENCES subject (id) ON DELETE CASCADE
)`,
		`CREATE INDEX idx_exam_subject_id ON exam (subject_id)`,
		`CREATE TABLE grade (
  id              TEXT    PRIMARY KEY,
  created_at      TEXT    NOT NULL,
  updated_at      TEXT    NOT NULL,
  version         INTEGER NOT NULL DEFAULT 1,
  app_instance_id TEXT    NOT NULL DEFAULT '',
  score           REAL    NOT NULL CHECK (score BETWEEN 1 AND 6),
  weight          REAL    NOT NULL CHECK (weight BETWEEN 0 AND 100),
  exam_id         TEXT    NOT NULL UNIQUE REFERENCES exam (id) ON DELETE CASCADE
)`,
	},
	Down: []string{
		`DROP TABLE grade`,
		`DROP TABLE exam`,
		`DROP TABLE subject`,
		`DROP TABLE school`,
	},
}

var addSemester = Migration{
	Timestamp: 1705000000000,
	Name:      "AddSemester",
	Up: []string{
		`CREATE TABLE semester (
  id              TEXT    PRIMARY KEY,
  created_at      TEXT    NOT NULL,
  updated_at      TEXT    NOT NULL,
  version         INTEGER NOT NULL DEFAULT 1,
  app_instance_id TEXT    NOT NULL DEFAULT '',
  name            TEXT    NOT NULL CHECK (length(name) BETWEEN 1 AND 255),
  start_date      TEXT    NOT NULL,
  end_date        TEXT    NOT NULL,
  CHECK (start_date <= end_date)
)`,
		`ALTER TABLE subject ADD COLUMN semester_id TEXT REFERENCES semester (id) ON DELETE SET NULL`,
		`CREATE INDEX idx_subject_semester_id ON subject (semester_id)`,
	},
	// SQLite cannot drop a foreign key column, so subject is rebuilt.
	Down: []string{
		`CREATE TABLE subject_rollback (
  id              TEXT    PRIMARY KEY,
  created_at      TEXT    NOT NULL,
  updated_at      TEXT    NOT NULL,
  version         INTEGER NOT NULL DEFAULT 1,
  app_instance_id TEXT    NOT NULL DEFAULT '',
  name            TEXT    NOT NULL CHECK (length(name) BETWEEN 1 AND 255),
  teacher         TEXT    NOT NULL DEFAULT '',
  school_id       TEXT    NOT NULL REFERENCES school (id) ON DELETE CASCADE
)`,
		`INSERT INTO subject_rollback (id, created_at, updated_at, version, app_instance_id, name, teacher, school_id)
SELECT id, created_at, updated_at, version, app_instance_id, name, teacher, school_id FROM subject`,
		`DROP TABLE subject`,
		`ALTER TABLE subject_rollback RENAME TO subject`,
		`CREATE INDEX idx_subject_school_id ON subject (school_id)`,
		`DROP TABLE semester`,
	},
	Seed: seedDefaultSemester,
}

var addExamDescriptionGradeComment = Migration{
	Timestamp: 1710000000000,
	Name:      "AddExamDescriptionGradeComment",
	Up: []string{
		`ALTER TABLE exam ADD COLUMN description TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE grade ADD COLUMN comment TEXT NOT NULL DEFAULT ''`,
	},
	Down: []string{
		`ALTER TABLE grade DROP COLUMN comment`,
		`ALTER TABLE exam DROP COLUMN description`,
	},
}

// The completed flag duplicated what the presence of a grade already says.
var dropExamCompletedFlag = Migration{
	Timestamp: 1715000000000,
	Name:      "DropExamCompletedFlag",
	Up: []string{
		`ALTER TABLE exam DROP COLUMN is_completed`,
	},
	Down: []string{
		`ALTER TABLE exam ADD COLUMN is_completed INTEGER NOT NULL DEFAULT 0`,
		`UPDATE exam SET is_completed = 1 WHERE id IN (SELECT exam_id FROM grade)`,
	},
}

// seedDefaultSemester creates the academic year containing env.Now unless a
// semester already exists.
func seedDefaultSemester(ctx context.Context, repos repository.Set, env SeedEnv) error {
	existing, err := repos.Semesters.FindAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	start, end := model.AcademicYear(env.Now)
	_, err = repos.Semesters.Add(ctx, &model.Semester{
		Name:      model.AcademicYearName(start, end),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return fmt.Errorf("default semester: %w", err)
	}
	return nil
}
