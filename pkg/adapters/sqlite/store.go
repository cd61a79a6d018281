// Package sqlite persists the ledger snapshot in normalized SQLite tables.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/sqlite/migrations"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	_ "modernc.org/sqlite"
)

// Store implements ports.LedgerStore on SQLite.
type Store struct {
	db *sql.DB
}

// splitTime stores a time as Unix milliseconds plus the nanoseconds within
// that millisecond, so restored timelocks and deadlines compare exactly.
func splitTime(value time.Time) (millis, nanos int64) {
	value = value.UTC()
	return value.UnixMilli(), int64(value.Nanosecond() % int(time.Millisecond))
}

func joinTime(millis, nanos int64) time.Time {
	return time.UnixMilli(millis).Add(time.Duration(nanos)).UTC()
}

// Open opens a SQLite ledger store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces every table in one transaction.
func (s *Store) Save(ctx context.Context, snapshot *domain.Snapshot) (err error) {
	if snapshot == nil {
		return errors.New("snapshot is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"tasks", "partners", "partner_tasks", "role_members"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, t := range snapshot.Tasks {
		var txHash string
		if !t.TxHash.IsZero() {
			txHash = t.TxHash.String()
		}
		timelockMillis, timelockNanos := splitTime(t.TimelockEndTime)
		deadlineMillis, deadlineNanos := splitTime(t.Deadline)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tasks (
			   id, partner, state, timelock_end_time, timelock_end_time_nanos,
			   deadline, deadline_nanos, amount, btc_address, tx_hash, tx_out, witness_script
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(t.ID),
			string(t.Partner),
			int(t.State),
			timelockMillis,
			timelockNanos,
			deadlineMillis,
			deadlineNanos,
			strconv.FormatUint(t.Amount, 10),
			t.BTCAddress,
			txHash,
			int64(t.TxOut),
			[]byte(t.WitnessScript),
		)
		if err != nil {
			return fmt.Errorf("insert task %d: %w", t.ID, err)
		}
	}

	for i, p := range snapshot.Partners {
		if _, err = tx.ExecContext(ctx, "INSERT INTO partners (position, partner_id) VALUES (?, ?)", i, string(p)); err != nil {
			return fmt.Errorf("insert partner %q: %w", p, err)
		}
	}

	for p, ids := range snapshot.PartnerTasks {
		for i, id := range ids {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO partner_tasks (partner_id, position, task_id) VALUES (?, ?, ?)",
				string(p), i, int64(id),
			)
			if err != nil {
				return fmt.Errorf("insert partner task %q/%d: %w", p, id, err)
			}
		}
	}

	for role, members := range snapshot.Roles {
		for _, m := range members {
			if _, err = tx.ExecContext(ctx, "INSERT INTO role_members (role, account) VALUES (?, ?)", string(role), string(m)); err != nil {
				return fmt.Errorf("insert role member %s/%s: %w", role, m, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledger_meta (id, saved_at, sealed) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at, sealed = excluded.sealed`,
		time.Now().UTC().UnixMilli(),
		snapshot.Sealed,
	)
	if err != nil {
		return fmt.Errorf("stamp ledger: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load reads the snapshot, or domain.ErrLedgerNotFound before the first Save.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	var (
		savedAt int64
		sealed  []byte
	)
	err := s.db.QueryRowContext(ctx, "SELECT saved_at, sealed FROM ledger_meta WHERE id = 1").Scan(&savedAt, &sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLedgerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger meta: %w", err)
	}

	snap := domain.NewSnapshot()
	if len(sealed) > 0 {
		snap.Sealed = sealed
	}
	if err := s.loadTasks(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadPartners(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadRoles(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadTasks(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, partner, state, timelock_end_time, timelock_end_time_nanos,
		        deadline, deadline_nanos, amount, btc_address, tx_hash, tx_out, witness_script
		 FROM tasks ORDER BY id`)
	if err != nil {
		return fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t                       domain.Task
			id, txOut               int64
			state                   int
			timelock, timelockNanos int64
			deadline, deadlineNanos int64
			amount, txHash          string
			partner                 string
			witness                 []byte
		)
		if err := rows.Scan(&id, &partner, &state, &timelock, &timelockNanos, &deadline, &deadlineNanos,
			&amount, &t.BTCAddress, &txHash, &txOut, &witness); err != nil {
			return fmt.Errorf("scan task: %w", err)
		}
		t.ID = uint64(id)
		t.Partner = domain.PartnerID(partner)
		t.State = domain.TaskState(state)
		t.TimelockEndTime = joinTime(timelock, timelockNanos)
		t.Deadline = joinTime(deadline, deadlineNanos)
		t.TxOut = uint32(txOut)
		if len(witness) > 0 {
			t.WitnessScript = domain.HexBytes(witness)
		}
		if t.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
			return fmt.Errorf("task %d amount: %w", id, err)
		}
		if txHash != "" {
			if t.TxHash, err = domain.ParseTxHash(txHash); err != nil {
				return fmt.Errorf("task %d tx hash: %w", id, err)
			}
		}
		snap.Tasks = append(snap.Tasks, t)
	}
	return rows.Err()
}

func (s *Store) loadPartners(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, "SELECT partner_id FROM partners ORDER BY position")
	if err != nil {
		return fmt.Errorf("query partners: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return fmt.Errorf("scan partner: %w", err)
		}
		snap.Partners = append(snap.Partners, domain.PartnerID(p))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	idx, err := s.db.QueryContext(ctx, "SELECT partner_id, task_id FROM partner_tasks ORDER BY partner_id, position")
	if err != nil {
		return fmt.Errorf("query partner tasks: %w", err)
	}
	defer idx.Close()
	for idx.Next() {
		var (
			p  string
			id int64
		)
		if err := idx.Scan(&p, &id); err != nil {
			return fmt.Errorf("scan partner task: %w", err)
		}
		key := domain.PartnerID(p)
		snap.PartnerTasks[key] = append(snap.PartnerTasks[key], uint64(id))
	}
	return idx.Err()
}

func (s *Store) loadRoles(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, "SELECT role, account FROM role_members ORDER BY role, account")
	if err != nil {
		return fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var role, account string
		if err := rows.Scan(&role, &account); err != nil {
			return fmt.Errorf("scan role member: %w", err)
		}
		r := domain.Role(role)
		snap.Roles[r] = append(snap.Roles[r], domain.Identity(account))
	}
	return rows.Err()
}
