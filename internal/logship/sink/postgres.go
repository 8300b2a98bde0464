package sink

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/G-Research/logship/internal/logship/configuration"
	"github.com/G-Research/logship/internal/logship/model"
)

// PostgresDialer reaches any store speaking the postgres wire protocol. Token credentials are sent as the
// password, which is how IAM-style short-lived tokens are presented to such stores. Warehouse is ignored.
type PostgresDialer struct {
	config configuration.SinkConfig
}

func NewPostgresDialer(config configuration.SinkConfig) *PostgresDialer {
	return &PostgresDialer{config: config}
}

func (d *PostgresDialer) Describe() string {
	return fmt.Sprintf("postgres %s.%s (host %s, %s auth)",
		d.config.Database, d.config.Schema, d.config.Endpoint, d.config.Credential.EffectiveKind())
}

// ConnectionString renders the configuration as a libpq keyword/value connection string
func (d *PostgresDialer) ConnectionString() string {
	values := map[string]string{
		"user":             d.config.Principal,
		"password":         d.config.Credential.Secret(),
		"dbname":           d.config.Database,
		"application_name": "logship",
	}
	if host, port, err := net.SplitHostPort(d.config.Endpoint); err == nil {
		values["host"] = host
		values["port"] = port
	} else {
		values["host"] = d.config.Endpoint
	}
	if d.config.ConnectTimeout > 0 {
		values["connect_timeout"] = fmt.Sprintf("%d", int(d.config.ConnectTimeout.Seconds()))
	}
	return createConnectionString(values)
}

func (d *PostgresDialer) Dial(ctx context.Context) (Session, error) {
	conn, err := pgx.Connect(ctx, d.ConnectionString())
	if err != nil {
		return nil, errors.WithMessage(err, "error opening postgres connection")
	}
	if d.config.Role != "" {
		if _, err := conn.Exec(ctx, "SET ROLE "+pgx.Identifier{d.config.Role}.Sanitize()); err != nil {
			_ = conn.Close(context.Background())
			return nil, errors.WithMessagef(err, "error assuming role %s", d.config.Role)
		}
	}
	return &postgresSession{conn: conn, schema: d.config.Schema, table: d.config.TableName}, nil
}

type postgresSession struct {
	conn   *pgx.Conn
	schema string
	table  string
}

func (s *postgresSession) InsertRows(ctx context.Context, rows []model.Row) error {
	query, args, err := PostgresInsert(s.schema, s.table, rows)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(ctx, query, args...)
	return err
}

func (s *postgresSession) Close() error {
	return s.conn.Close(context.Background())
}

// PostgresInsert builds one parameterised multi-row INSERT into schema.table
func PostgresInsert(schema, table string, rows []model.Row) (string, []interface{}, error) {
	cols := make([]interface{}, len(model.Columns))
	for i, c := range model.Columns {
		cols[i] = c
	}
	vals := make([][]interface{}, len(rows))
	for i, row := range rows {
		vals[i] = row.Values()
	}
	query, args, err := goqu.Dialect("postgres").
		Insert(goqu.S(schema).Table(table)).
		Cols(cols...).
		Vals(vals...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, errors.WithMessage(err, "error building insert statement")
	}
	return query, args, nil
}

// https://www.postgresql.org/docs/current/libpq-connect.html#LIBPQ-CONNSTRING
func createConnectionString(values map[string]string) string {
	keys := maps.Keys(values)
	slices.Sort(keys)

	replacer := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	pairs := make([]string, 0, len(values))
	for _, k := range keys {
		pairs = append(pairs, k+"='"+replacer.Replace(values[k])+"'")
	}
	return strings.Join(pairs, " ")
}
