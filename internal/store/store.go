// Package store is the durable order and timeout-event repository,
// backed by Postgres via database/sql and lib/pq.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fusion-relay/relayer/internal/relayerr"
	"github.com/fusion-relay/relayer/internal/types"

	"github.com/lib/pq"
)

// Store wraps the Postgres connection pool used by the order store
// and deadline scheduler.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres using a lib/pq DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateOrder inserts a new order row, returning relayerr.DuplicateOrder
// if order_hash already exists.
func (s *Store) CreateOrder(order *types.SwapOrder) error {
	query := `
		INSERT INTO swap_orders (
			order_hash, state, maker, maker_dst_address, receiver,
			maker_asset, taker_asset, making_amount, taking_amount,
			secret_hash, deadline_src, deadline_dst,
			auction_start, auction_end, start_rate, end_rate, curve,
			original_order_bytes, signature, extension, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		) RETURNING id`

	curveJSON, err := json.Marshal(order.Curve)
	if err != nil {
		return fmt.Errorf("encode curve: %w", err)
	}

	err = s.db.QueryRow(
		query,
		order.OrderHash,
		order.State,
		order.Maker,
		order.MakerDstAddress,
		order.Receiver,
		order.MakerAsset,
		order.TakerAsset,
		order.MakingAmount.String(),
		order.TakingAmount.String(),
		order.SecretHash,
		order.DeadlineSrc,
		order.DeadlineDst,
		order.AuctionStart,
		order.AuctionEnd,
		order.StartRate.String(),
		order.EndRate.String(),
		string(curveJSON),
		string(order.OriginalOrderBytes),
		order.Signature,
		order.Extension,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID)

	if isUniqueViolation(err) {
		return &relayerr.DuplicateOrder{OrderHash: order.OrderHash}
	}
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

const selectColumns = `
	id, order_hash, state, maker, maker_dst_address, receiver,
	maker_asset, taker_asset, making_amount, taking_amount,
	secret_hash, secret, deadline_src, deadline_dst,
	src_escrow_address, src_lock_tx_hash, src_unlock_tx_hash, src_cancel_tx_hash,
	dst_escrow_id, dst_lock_tx_hash, dst_unlock_tx_hash, dst_cancel_tx_hash,
	auction_start, auction_end, start_rate, end_rate, curve,
	original_order_bytes, signature, extension, created_at, updated_at, error_message`

// GetByHash loads an order by its hash, returning relayerr.NotFound if
// no row matches.
func (s *Store) GetByHash(orderHash string) (*types.SwapOrder, error) {
	row := s.db.QueryRow(`SELECT `+selectColumns+` FROM swap_orders WHERE order_hash = $1`, orderHash)
	return scanOrder(row, orderHash)
}

// GetByID loads an order by its primary key.
func (s *Store) GetByID(id int64) (*types.SwapOrder, error) {
	row := s.db.QueryRow(`SELECT `+selectColumns+` FROM swap_orders WHERE id = $1`, id)
	return scanOrder(row, fmt.Sprintf("id=%d", id))
}

// ListActive returns every non-terminal order, most recent first.
func (s *Store) ListActive() ([]*types.SwapOrder, error) {
	return s.queryOrders(`
		SELECT ` + selectColumns + ` FROM swap_orders
		WHERE state NOT IN ('EXECUTED', 'REFUNDED', 'CANCELLED_SRC', 'ERROR')
		ORDER BY created_at DESC`)
}

// ListByMaker returns every order for a given maker address.
func (s *Store) ListByMaker(maker string) ([]*types.SwapOrder, error) {
	rows, err := s.db.Query(`SELECT `+selectColumns+` FROM swap_orders WHERE maker = $1 ORDER BY created_at DESC`, maker)
	if err != nil {
		return nil, fmt.Errorf("list orders by maker: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (s *Store) queryOrders(query string) ([]*types.SwapOrder, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// UpdateState performs a compare-and-set transition: it only succeeds
// if the stored state still equals from and (from, to) is a legal move
// per types.CanTransition. It returns relayerr.IllegalTransition
// otherwise, so callers never silently race each other.
func (s *Store) UpdateState(orderHash string, from, to types.SwapState) error {
	if !types.CanTransition(from, to) {
		return &relayerr.IllegalTransition{OrderHash: orderHash, From: string(from), To: string(to)}
	}
	res, err := s.db.Exec(
		`UPDATE swap_orders SET state = $1, updated_at = $2 WHERE order_hash = $3 AND state = $4`,
		to, time.Now().UTC(), orderHash, from,
	)
	if err != nil {
		return fmt.Errorf("update order state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order state: %w", err)
	}
	if n == 0 {
		return &relayerr.IllegalTransition{OrderHash: orderHash, From: string(from), To: string(to)}
	}
	return nil
}

// ForceState sets the order straight to the given state and error
// message regardless of the transition table and the current state.
// The coordinator uses it when a timeout fires, to move the order to
// CANCELLED_SRC or CANCELLED_DST.
func (s *Store) ForceState(orderHash string, to types.SwapState, errMsg string) error {
	_, err := s.db.Exec(
		`UPDATE swap_orders SET state = $1, error_message = $2, updated_at = $3 WHERE order_hash = $4`,
		to, errMsg, time.Now().UTC(), orderHash,
	)
	if err != nil {
		return fmt.Errorf("force order state: %w", err)
	}
	return nil
}

// AttachSrcEscrow records the source-chain escrow reference, once.
// Calling it twice for the same order returns relayerr.AlreadySet.
func (s *Store) AttachSrcEscrow(orderHash, txHash, escrowAddress string) error {
	res, err := s.db.Exec(
		`UPDATE swap_orders SET src_lock_tx_hash = $1, src_escrow_address = $2, updated_at = $3
		 WHERE order_hash = $4 AND src_escrow_address = ''`,
		txHash, escrowAddress, time.Now().UTC(), orderHash,
	)
	return requireAffected(res, err, orderHash, "srcEscrowAddress")
}

// AttachDstEscrow records the destination-chain escrow reference, once.
func (s *Store) AttachDstEscrow(orderHash, txHash, escrowID string) error {
	res, err := s.db.Exec(
		`UPDATE swap_orders SET dst_lock_tx_hash = $1, dst_escrow_id = $2, updated_at = $3
		 WHERE order_hash = $4 AND dst_escrow_id = ''`,
		txHash, escrowID, time.Now().UTC(), orderHash,
	)
	return requireAffected(res, err, orderHash, "dstEscrowId")
}

// RecordUnlockTx stores the unlock transaction hash for whichever side
// just revealed the secret on-chain.
func (s *Store) RecordUnlockTx(orderHash string, isSrc bool, txHash string) error {
	col := "dst_unlock_tx_hash"
	if isSrc {
		col = "src_unlock_tx_hash"
	}
	_, err := s.db.Exec(
		fmt.Sprintf(`UPDATE swap_orders SET %s = $1, updated_at = $2 WHERE order_hash = $3`, col),
		txHash, time.Now().UTC(), orderHash,
	)
	if err != nil {
		return fmt.Errorf("record unlock tx: %w", err)
	}
	return nil
}

// RecordCancelTx stores the cancel transaction hash for whichever side
// was just reclaimed after timeout.
func (s *Store) RecordCancelTx(orderHash string, isSrc bool, txHash string) error {
	col := "dst_cancel_tx_hash"
	if isSrc {
		col = "src_cancel_tx_hash"
	}
	_, err := s.db.Exec(
		fmt.Sprintf(`UPDATE swap_orders SET %s = $1, updated_at = $2 WHERE order_hash = $3`, col),
		txHash, time.Now().UTC(), orderHash,
	)
	if err != nil {
		return fmt.Errorf("record cancel tx: %w", err)
	}
	return nil
}

// RecordSecret stores the revealed secret, once, and only if it hashes
// to the order's committed secretHash. Returns relayerr.SecretMismatch
// or relayerr.AlreadySet as appropriate.
func (s *Store) RecordSecret(orderHash, secret, expectedHash string, matches bool) error {
	if !matches {
		return &relayerr.SecretMismatch{OrderHash: orderHash}
	}
	res, err := s.db.Exec(
		`UPDATE swap_orders SET secret = $1, updated_at = $2 WHERE order_hash = $3 AND secret = ''`,
		secret, time.Now().UTC(), orderHash,
	)
	return requireAffected(res, err, orderHash, "secret")
}

func requireAffected(res sql.Result, err error, orderHash, field string) error {
	if err != nil {
		return fmt.Errorf("update %s: %w", field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", field, err)
	}
	if n == 0 {
		return &relayerr.AlreadySet{OrderHash: orderHash, Field: field}
	}
	return nil
}

func scanOrders(rows *sql.Rows) ([]*types.SwapOrder, error) {
	var orders []*types.SwapOrder
	for rows.Next() {
		order, err := scanOrder(rows, "")
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner, ref string) (*types.SwapOrder, error) {
	o := &types.SwapOrder{}
	var makingStr, takingStr, startRateStr, endRateStr, curveJSON, originalOrderJSON string

	err := row.Scan(
		&o.ID, &o.OrderHash, &o.State, &o.Maker, &o.MakerDstAddress, &o.Receiver,
		&o.MakerAsset, &o.TakerAsset, &makingStr, &takingStr,
		&o.SecretHash, &o.Secret, &o.DeadlineSrc, &o.DeadlineDst,
		&o.SrcEscrowAddress, &o.SrcLockTxHash, &o.SrcUnlockTxHash, &o.SrcCancelTxHash,
		&o.DstEscrowID, &o.DstLockTxHash, &o.DstUnlockTxHash, &o.DstCancelTxHash,
		&o.AuctionStart, &o.AuctionEnd, &startRateStr, &endRateStr, &curveJSON,
		&originalOrderJSON, &o.Signature, &o.Extension, &o.CreatedAt, &o.UpdatedAt, &o.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, &relayerr.NotFound{OrderHash: ref}
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if o.MakingAmount, err = types.ParseBigInt(makingStr); err != nil {
		return nil, fmt.Errorf("parse makingAmount: %w", err)
	}
	if o.TakingAmount, err = types.ParseBigInt(takingStr); err != nil {
		return nil, fmt.Errorf("parse takingAmount: %w", err)
	}
	if o.StartRate, err = types.ParseBigInt(startRateStr); err != nil {
		return nil, fmt.Errorf("parse startRate: %w", err)
	}
	if o.EndRate, err = types.ParseBigInt(endRateStr); err != nil {
		return nil, fmt.Errorf("parse endRate: %w", err)
	}
	if err := json.Unmarshal([]byte(curveJSON), &o.Curve); err != nil {
		return nil, fmt.Errorf("parse curve: %w", err)
	}
	o.OriginalOrderBytes = []byte(originalOrderJSON)
	return o, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), as raised by the swap_orders order_hash index.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
