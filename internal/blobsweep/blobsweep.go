package blobsweep

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

const sweepTimeout = 5 * time.Second

// Run deletes expired chat_blobs rows every interval until ctx is done.
func Run(ctx context.Context, db *sql.DB, ttl, interval time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				_, _ = sweepOnce(ctx, db, time.Now().UTC().Add(-ttl))
			}
		}
	}()
}

func sweepOnce(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	res, err := db.ExecContext(ctx, `DELETE FROM chat_blobs WHERE created_at <= $1`, cutoff)
	if err != nil {
		zap.L().Error("blobsweep.delete", zap.Error(err))
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		zap.L().Debug("blobsweep.rows_affected", zap.Error(err))
		return 0, nil
	}
	if n > 0 {
		zap.L().Info("blobsweep.deleted", zap.Int64("rows", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}
