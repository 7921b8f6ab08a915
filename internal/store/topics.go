package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/SamVia/quizzz/internal/model"
)

const topicColumns = `id, source, title, file_hash, arity, count, load_error, imported_at`

func scanTopic(row interface{ Scan(...any) error }) (model.Topic, error) {
	var t model.Topic
	err := row.Scan(&t.ID, &t.Source, &t.Title, &t.Hash, &t.Arity, &t.Count, &t.LoadError, &t.ImportedAt)
	return t, err
}

// ListTopics returns all topics ordered by title.
func (s *Store) ListTopics() ([]model.Topic, error) {
	rows, err := s.db.Query(`SELECT ` + topicColumns + ` FROM topics ORDER BY title, source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var topics []model.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// GetTopic returns a topic by ID, or sql.ErrNoRows.
func (s *Store) GetTopic(id int64) (model.Topic, error) {
	return scanTopic(s.db.QueryRow(`SELECT `+topicColumns+` FROM topics WHERE id = ?`, id))
}

// TopicBySource returns the topic imported from source, or nil if none.
func (s *Store) TopicBySource(source string) (*model.Topic, error) {
	t, err := scanTopic(s.db.QueryRow(`SELECT `+topicColumns+` FROM topics WHERE source = ?`, source))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveTopic inserts or updates the topic keyed by t.Source and replaces its
// questions with recs. A topic with a LoadError is saved without questions.
func (s *Store) SaveTopic(t model.Topic, recs []model.QuestionRecord) (int64, error) {
	if t.ImportedAt.IsZero() {
		t.ImportedAt = time.Now()
	}
	if t.LoadError != "" {
		recs = nil
	}
	t.Count = len(recs)
	if len(recs) > 0 {
		t.Arity = len(recs[0].Options)
	} else {
		t.Arity = 0
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(
		`INSERT INTO topics (source, title, file_hash, arity, count, load_error, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source) DO UPDATE SET
		   title = excluded.title, file_hash = excluded.file_hash, arity = excluded.arity,
		   count = excluded.count, load_error = excluded.load_error, imported_at = excluded.imported_at
		 RETURNING id`,
		t.Source, t.Title, t.Hash, t.Arity, t.Count, t.LoadError, t.ImportedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert topic %s: %w", t.Source, err)
	}

	if _, err := tx.Exec(`DELETE FROM questions WHERE topic_id = ?`, id); err != nil {
		return 0, fmt.Errorf("clear questions: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO questions (topic_id, position, prompt, option_a, option_b, option_c, option_d, solution, rationale)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, q := range recs {
		var d string
		if len(q.Options) > 3 {
			d = q.Options[3]
		}
		if _, err := stmt.Exec(id, q.Position, q.Prompt, q.Options[0], q.Options[1], q.Options[2], d, q.Solution, q.Rationale); err != nil {
			return 0, fmt.Errorf("insert question %d: %w", q.Position, err)
		}
	}
	return id, tx.Commit()
}

// Questions returns the records of a topic in file order.
func (s *Store) Questions(topicID int64) ([]model.QuestionRecord, error) {
	var arity int
	if err := s.db.QueryRow(`SELECT arity FROM topics WHERE id = ?`, topicID).Scan(&arity); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT position, prompt, option_a, option_b, option_c, option_d, solution, rationale
		 FROM questions WHERE topic_id = ? ORDER BY position`, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []model.QuestionRecord
	for rows.Next() {
		var q model.QuestionRecord
		var a, b, c, d string
		if err := rows.Scan(&q.Position, &q.Prompt, &a, &b, &c, &d, &q.Solution, &q.Rationale); err != nil {
			return nil, err
		}
		q.Options = []string{a, b, c}
		if arity == 4 {
			q.Options = append(q.Options, d)
		}
		recs = append(recs, q)
	}
	return recs, rows.Err()
}

// DeleteTopicsExcept removes topics whose source is not in keep, with their
// questions. It returns the number of topics removed.
func (s *Store) DeleteTopicsExcept(keep []string) (int64, error) {
	topics, err := s.ListTopics()
	if err != nil {
		return 0, err
	}
	want := make(map[string]bool, len(keep))
	for _, k := range keep {
		want[k] = true
	}
	var removed int64
	for _, t := range topics {
		if want[t.Source] {
			continue
		}
		if _, err := s.db.Exec(`DELETE FROM questions WHERE topic_id = ?`, t.ID); err != nil {
			return removed, err
		}
		if _, err := s.db.Exec(`DELETE FROM topics WHERE id = ?`, t.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// QuestionCount returns the number of questions across all topics.
func (s *Store) QuestionCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&n)
	return n, err
}
