package migrations

import (
	"context"
	"encoding/json"

	"classroom-quiz-service/internal/quizdata"
	"github.com/uptrace/bun"
)

// The built-in quiz is seeded so a fresh database serves the default exam.
func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			quiz := quizdata.JavaBasics()
			data, err := json.Marshal(quiz)
			if err != nil {
				return err
			}
			_, err = db.NewInsert().
				Model(&quizRow{ID: quiz.ID, Data: data}).
				On("CONFLICT (id) DO NOTHING").
				Exec(ctx)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewDelete().
				Model((*quizRow)(nil)).
				Where("id = ?", quizdata.JavaBasicsID).
				Exec(ctx)
			return err
		},
	)
}
