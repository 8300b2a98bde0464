package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/snowflakedb/gosnowflake"

	"github.com/G-Research/logship/internal/logship/configuration"
	"github.com/G-Research/logship/internal/logship/model"
)

const snowflakeApplication = "logship"

type SnowflakeDialer struct {
	config configuration.SinkConfig
}

func NewSnowflakeDialer(config configuration.SinkConfig) *SnowflakeDialer {
	return &SnowflakeDialer{config: config}
}

func (d *SnowflakeDialer) Describe() string {
	return fmt.Sprintf("snowflake %s.%s (account %s, %s auth)",
		d.config.Database, d.config.Schema, d.config.Endpoint, d.config.Credential.EffectiveKind())
}

// Config translates the sink configuration into the driver's own configuration. Token credentials use OAuth.
func (d *SnowflakeDialer) Config() *gosnowflake.Config {
	cfg := &gosnowflake.Config{
		Account:      d.config.Endpoint,
		User:         d.config.Principal,
		Database:     d.config.Database,
		Schema:       d.config.Schema,
		Warehouse:    d.config.Warehouse,
		Role:         d.config.Role,
		LoginTimeout: d.config.ConnectTimeout,
		Application:  snowflakeApplication,
	}
	if d.config.Credential.EffectiveKind() == configuration.CredentialToken {
		cfg.Authenticator = gosnowflake.AuthTypeOAuth
		cfg.Token = d.config.Credential.Token
	} else {
		cfg.Password = d.config.Credential.Password
	}
	return cfg
}

func (d *SnowflakeDialer) Dial(ctx context.Context) (Session, error) {
	dsn, err := gosnowflake.DSN(d.Config())
	if err != nil {
		return nil, errors.WithMessage(err, "error building snowflake dsn")
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, errors.WithMessage(err, "error opening snowflake connection")
	}
	db.SetMaxOpenConns(1)

	if d.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WithMessage(err, "error pinging snowflake")
	}
	return &snowflakeSession{db: db, table: d.config.TableName}, nil
}

type snowflakeSession struct {
	db    *sql.DB
	table string
}

func (s *snowflakeSession) InsertRows(ctx context.Context, rows []model.Row) error {
	query, args := SnowflakeInsert(s.table, rows)
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *snowflakeSession) Close() error {
	return s.db.Close()
}

// SnowflakeInsert builds one INSERT for all rows. Snowflake does not accept PARSE_JSON inside a VALUES list, so
// the rows are bound as an inline table and selected from, parsing the metadata column on the way.
func SnowflakeInsert(table string, rows []model.Row) (string, []interface{}) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) SELECT ", table, strings.Join(model.Columns, ", "))
	for i := range model.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		if i == model.MetadataColumn {
			fmt.Fprintf(&sb, "PARSE_JSON(column%d)", i+1)
		} else {
			fmt.Fprintf(&sb, "column%d", i+1)
		}
	}
	sb.WriteString(" FROM VALUES ")

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(model.Columns)), ", ") + ")"
	args := make([]interface{}, 0, len(rows)*len(model.Columns))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(placeholders)
		args = append(args, row.Values()...)
	}
	return sb.String(), args
}
