package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// insertDate appends the calendar row for a snapshot date. Dates are
// immutable once created; date_key is the primary key, so inserting the same
// date twice fails at the constraint rather than silently duplicating.
func insertDate(ctx context.Context, tx pgx.Tx, date time.Time) error {
	row := NewDateRow(date)
	_, err := tx.Exec(ctx, `
INSERT INTO dim_date_calendar (date_key, cal_year, cal_month, cal_week_of_year)
VALUES ($1, $2, $3, $4)
`, row.DateKey, row.CalYear, row.CalMonth, row.CalWeekOfYr)
	if err != nil {
		return fmt.Errorf("insert date %s: %w", DateKeyFormat(date), err)
	}
	return nil
}
