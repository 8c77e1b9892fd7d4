package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tadeyemo32/outreach-batcher/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const projectsDDL = `CREATE TABLE IF NOT EXISTS projects (
	id                  UUID PRIMARY KEY,
	name                TEXT NOT NULL,
	user_id             TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	sheet_link          TEXT NOT NULL DEFAULT '',
	response_sheet_link TEXT NOT NULL DEFAULT '',
	no_of_mailbox       INT  NOT NULL DEFAULT 1,
	emails_per_mailbox  INT  NOT NULL DEFAULT 30,
	email_per_contact   INT  NOT NULL DEFAULT 1,
	batch_duration_days INT  NOT NULL DEFAULT 2,
	days_between_contacts INT NOT NULL DEFAULT 3,
	follow_up_cycle_days  INT NOT NULL DEFAULT 7,
	contact_limit_small      INT NOT NULL DEFAULT 2,
	contact_limit_small_mid  INT NOT NULL DEFAULT 3,
	contact_limit_medium     INT NOT NULL DEFAULT 4,
	contact_limit_large      INT NOT NULL DEFAULT 5,
	contact_limit_enterprise INT NOT NULL DEFAULT 6,
	company_size_small_max     INT NOT NULL DEFAULT 10,
	company_size_small_mid_max INT NOT NULL DEFAULT 50,
	company_size_medium_max    INT NOT NULL DEFAULT 200,
	company_size_large_max     INT NOT NULL DEFAULT 1000,
	company_size_enterprise_min INT NOT NULL DEFAULT 1001,
	target_departments   JSONB,
	excluded_departments JSONB,
	seniority_tier_1     JSONB,
	seniority_tier_2     JSONB,
	seniority_tier_3     JSONB,
	seniority_excluded   JSONB,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS projects_user_id_idx ON projects (user_id);`

// projectColumns lists every column in scan order; created_at stays last
// because inserts leave it to the database.
var projectColumns = []string{
	"id", "name", "user_id", "description", "sheet_link", "response_sheet_link",
	"no_of_mailbox", "emails_per_mailbox", "email_per_contact", "batch_duration_days",
	"days_between_contacts", "follow_up_cycle_days",
	"contact_limit_small", "contact_limit_small_mid", "contact_limit_medium", "contact_limit_large", "contact_limit_enterprise",
	"company_size_small_max", "company_size_small_mid_max", "company_size_medium_max", "company_size_large_max", "company_size_enterprise_min",
	"target_departments", "excluded_departments",
	"seniority_tier_1", "seniority_tier_2", "seniority_tier_3", "seniority_excluded",
	"created_at",
}

// projectLists pairs each JSONB column, in column order, with its field.
func projectLists(p *models.Project) []*[]string {
	return []*[]string{
		&p.TargetDepartments, &p.ExcludedDepartments,
		&p.SeniorityTier1, &p.SeniorityTier2, &p.SeniorityTier3, &p.SeniorityExcluded,
	}
}

func projectInts(p *models.Project) []*int {
	return []*int{
		&p.NoOfMailbox, &p.EmailsPerMailbox, &p.EmailPerContact, &p.BatchDurationDays,
		&p.DaysBetweenContact, &p.FollowUpCycleDays,
		&p.ContactLimitSmall, &p.ContactLimitSmallMid, &p.ContactLimitMedium, &p.ContactLimitLarge, &p.ContactLimitEnterprise,
		&p.SmallMax, &p.SmallMidMax, &p.MediumMax, &p.LargeMax, &p.EnterpriseMin,
	}
}

// PgProjectStore keeps projects in Postgres. Used when DATABASE_URL points
// at a postgres server.
type PgProjectStore struct {
	Pool *pgxpool.Pool
}

func OpenPgProjectStore(ctx context.Context, dsn string) (*PgProjectStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, projectsDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure projects table: %w", err)
	}
	return &PgProjectStore{Pool: pool}, nil
}

func (s *PgProjectStore) Close() { s.Pool.Close() }

func (s *PgProjectStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrProjectNotFound
	}
	cols := append([]string{"id::text"}, projectColumns[1:]...)
	query, args, err := psql.Select(cols...).From("projects").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	var p models.Project
	lists := projectLists(&p)
	raw := make([][]byte, len(lists))
	dest := []any{&p.ID, &p.Name, &p.UserID, &p.Description, &p.SheetLink, &p.ResponseSheetLink}
	for _, n := range projectInts(&p) {
		dest = append(dest, n)
	}
	for i := range raw {
		dest = append(dest, &raw[i])
	}
	dest = append(dest, &p.CreatedAt)

	err = s.Pool.QueryRow(ctx, query, args...).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	for i, list := range lists {
		if err := decodeList(raw[i], list); err != nil {
			return nil, err
		}
	}
	p.ApplyDefaults()
	return &p, nil
}

func (s *PgProjectStore) ListProjectIDs(ctx context.Context, userID string) ([]string, error) {
	query, args, err := psql.Select("id::text").From("projects").
		Where(sq.Eq{"user_id": userID}).OrderBy("created_at ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects for %s: %w", userID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan project ids: %w", err)
	}
	return ids, nil
}

func (s *PgProjectStore) CreateProject(ctx context.Context, p *models.Project) error {
	p.ApplyDefaults()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	query, args, err := insertProjectSQL(p)
	if err != nil {
		return err
	}
	if err := s.Pool.QueryRow(ctx, query, args...).Scan(&p.CreatedAt); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func insertProjectSQL(p *models.Project) (string, []any, error) {
	values := []any{p.ID, p.Name, p.UserID, p.Description, p.SheetLink, p.ResponseSheetLink}
	for _, n := range projectInts(p) {
		values = append(values, *n)
	}
	for _, list := range projectLists(p) {
		b, err := json.Marshal(*list)
		if err != nil {
			return "", nil, err
		}
		values = append(values, b)
	}
	return psql.Insert("projects").
		Columns(projectColumns[:len(projectColumns)-1]...).
		Values(values...).
		Suffix("RETURNING created_at").
		ToSql()
}

func decodeList(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode list column: %w", err)
	}
	return nil
}
