package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/mo"

	"msgbridge/core"
	dbtx "msgbridge/db/tx"
	"msgbridge/models"
)

type PostgresAutoReplyRulesRepository struct {
	db     *sqlx.DB
	schema string
}

// DBAutoReplyRule represents the database schema for auto_reply_rules,
// with trigger_keywords as a postgres text array.
type DBAutoReplyRule struct {
	ID                  string                 `db:"id"`
	Name                string                 `db:"name"`
	TriggerKeywords     pq.StringArray         `db:"trigger_keywords"`
	ResponseTemplate    string                 `db:"response_template"`
	ConfidenceThreshold float64                `db:"confidence_threshold"`
	IsActive            bool                   `db:"is_active"`
	Category            models.MessageCategory `db:"category"`
	ResponseDelayMs     int                    `db:"response_delay_ms"`
	CreatedAt           time.Time              `db:"created_at"`
	UpdatedAt           time.Time              `db:"updated_at"`
}

// Column names for auto_reply_rules table
var autoReplyRulesColumns = []string{
	"id",
	"name",
	"trigger_keywords",
	"response_template",
	"confidence_threshold",
	"is_active",
	"category",
	"response_delay_ms",
	"created_at",
	"updated_at",
}

func NewPostgresAutoReplyRulesRepository(db *sqlx.DB, schema string) *PostgresAutoReplyRulesRepository {
	return &PostgresAutoReplyRulesRepository{db: db, schema: schema}
}

func dbRuleToModel(dbRule *DBAutoReplyRule) *models.AutoReplyRule {
	return &models.AutoReplyRule{
		ID:                  dbRule.ID,
		Name:                dbRule.Name,
		TriggerKeywords:     []string(dbRule.TriggerKeywords),
		ResponseTemplate:    dbRule.ResponseTemplate,
		ConfidenceThreshold: dbRule.ConfidenceThreshold,
		IsActive:            dbRule.IsActive,
		Category:            dbRule.Category,
		ResponseDelayMs:     dbRule.ResponseDelayMs,
		CreatedAt:           dbRule.CreatedAt,
		UpdatedAt:           dbRule.UpdatedAt,
	}
}

func (r *PostgresAutoReplyRulesRepository) CreateRule(ctx context.Context, rule *models.AutoReplyRule) error {
	db := dbtx.GetTransactional(ctx, r.db)
	returningStr := strings.Join(autoReplyRulesColumns, ", ")

	query := fmt.Sprintf(`
		INSERT INTO %s.auto_reply_rules (
			id, name, trigger_keywords, response_template,
			confidence_threshold, is_active, category, response_delay_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, r.schema, returningStr)

	var returned DBAutoReplyRule
	err := db.QueryRowxContext(ctx, query,
		rule.ID, rule.Name, pq.StringArray(rule.TriggerKeywords), rule.ResponseTemplate,
		rule.ConfidenceThreshold, rule.IsActive, rule.Category, rule.ResponseDelayMs).
		StructScan(&returned)
	if err != nil {
		return fmt.Errorf("failed to create auto reply rule: %w", err)
	}

	*rule = *dbRuleToModel(&returned)
	return nil
}

func (r *PostgresAutoReplyRulesRepository) GetRuleByID(
	ctx context.Context,
	id string,
) (mo.Option[*models.AutoReplyRule], error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(autoReplyRulesColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.auto_reply_rules
		WHERE id = $1`, columnsStr, r.schema)

	var dbRule DBAutoReplyRule
	err := db.GetContext(ctx, &dbRule, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.AutoReplyRule](), nil
		}
		return mo.None[*models.AutoReplyRule](), fmt.Errorf("failed to get auto reply rule: %w", err)
	}
	return mo.Some(dbRuleToModel(&dbRule)), nil
}

// ListActiveRules returns active rules in creation order. Scan order matters:
// the decision engine resolves confidence ties by the rule scanned first.
func (r *PostgresAutoReplyRulesRepository) ListActiveRules(ctx context.Context) ([]*models.AutoReplyRule, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(autoReplyRulesColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.auto_reply_rules
		WHERE is_active = TRUE
		ORDER BY created_at`, columnsStr, r.schema)

	var dbRules []DBAutoReplyRule
	if err := db.SelectContext(ctx, &dbRules, query); err != nil {
		return nil, fmt.Errorf("failed to list active rules: %w", err)
	}

	rules := make([]*models.AutoReplyRule, 0, len(dbRules))
	for i := range dbRules {
		rules = append(rules, dbRuleToModel(&dbRules[i]))
	}
	return rules, nil
}

func (r *PostgresAutoReplyRulesRepository) DeleteRule(ctx context.Context, id string) error {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`DELETE FROM %s.auto_reply_rules WHERE id = $1`, r.schema)

	result, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete auto reply rule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return core.ErrNotFound
	}
	return nil
}
