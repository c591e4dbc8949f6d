package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/licitaware/procura/pkg/match"
)

// queryCanceledCode is the SQLSTATE raised when statement_timeout fires.
const queryCanceledCode = "57014"

// OpportunitySearcher runs one ANN pass over the opportunities table. Each
// pass executes in its own transaction so that SET LOCAL statement_timeout
// and SET LOCAL hnsw.ef_search scope to the pass and roll back with it.
type OpportunitySearcher struct {
	conn *Connection
}

// NewOpportunitySearcher creates a searcher over the connection.
func NewOpportunitySearcher(conn *Connection) *OpportunitySearcher {
	return &OpportunitySearcher{conn: conn}
}

type searchRow struct {
	ID             uuid.UUID  `gorm:"column:id"`
	NoticeNumber   string     `gorm:"column:notice_number"`
	BuyerOrg       string     `gorm:"column:buyer_org"`
	ObjectText     string     `gorm:"column:object_text"`
	LocationCode   string     `gorm:"column:location_code"`
	EstimatedValue float64    `gorm:"column:estimated_value"`
	ClosesAt       *time.Time `gorm:"column:closes_at"`
	SourceURL      string     `gorm:"column:source_url"`
	Distance       float64    `gorm:"column:distance"`
}

// Search executes a single bounded nearest-neighbor query, ordered by
// ascending cosine distance. A statement timeout or context deadline is
// reported as a retrieval timeout so the caller can decide on a fallback.
func (s *OpportunitySearcher) Search(ctx context.Context, query []float32, pass match.SearchPass) ([]match.Candidate, error) {
	vec := pgvector.NewVector(query)

	var rows []searchRow
	err := s.conn.Transaction(func(tx *gorm.DB) error {
		tx = tx.WithContext(ctx)

		timeoutMS := int(pass.Budget.Milliseconds())
		if err := tx.Exec(fmt.Sprintf("SET LOCAL statement_timeout = %d", timeoutMS)).Error; err != nil {
			return fmt.Errorf("failed to set statement timeout: %w", err)
		}
		if err := tx.Exec(fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", s.conn.EFSearch())).Error; err != nil {
			return fmt.Errorf("failed to set hnsw.ef_search: %w", err)
		}

		return tx.Raw(buildSearchSQL(pass), vec, pass.Limit).Scan(&rows).Error
	})
	if err != nil {
		if isQueryTimeout(err) {
			return nil, fmt.Errorf("%w: budget of %s exceeded", match.ErrRetrievalTimeout, pass.Budget)
		}
		return nil, fmt.Errorf("opportunity search failed: %w", err)
	}

	candidates := make([]match.Candidate, len(rows))
	for i, row := range rows {
		candidates[i] = match.Candidate{
			ID:             row.ID,
			NoticeNumber:   row.NoticeNumber,
			BuyerOrg:       row.BuyerOrg,
			ObjectText:     row.ObjectText,
			LocationCode:   row.LocationCode,
			EstimatedValue: row.EstimatedValue,
			ClosesAt:       row.ClosesAt,
			SourceURL:      row.SourceURL,
			Distance:       row.Distance,
		}
	}
	return candidates, nil
}

// buildSearchSQL assembles the pass query. TABLESAMPLE must appear directly
// after the table name; the sampled pass trades recall for a bounded scan.
func buildSearchSQL(pass match.SearchPass) string {
	var b strings.Builder

	b.WriteString("SELECT id, notice_number, buyer_org, object_text, location_code, ")
	b.WriteString("estimated_value, closes_at, source_url, embedding <=> ? AS distance ")
	b.WriteString("FROM opportunities")
	if pass.SamplePct > 0 {
		fmt.Fprintf(&b, " TABLESAMPLE SYSTEM (%g)", pass.SamplePct)
	}
	b.WriteString(" WHERE embedding IS NOT NULL")
	if pass.FilterExpired {
		b.WriteString(" AND (closes_at IS NULL OR closes_at > now())")
	}
	b.WriteString(" ORDER BY distance LIMIT ?")

	return b.String()
}

// isQueryTimeout reports whether the error came from statement_timeout or a
// context deadline.
func isQueryTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == queryCanceledCode {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
