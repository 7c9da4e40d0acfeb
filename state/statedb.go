package state

import (
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/common"
	"github.com/TEENet-io/tokenbridge/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	ErrMessageNotFound         = errors.New("message not found")
	ErrInvalidStatusTransition = errors.New("invalid message status transition")
)

type StateDB struct {
	stmtCache *database.StmtCache
}

func NewStateDB(db *sql.DB) (*StateDB, error) {
	// 1. Create the tables.
	if _, err := db.Exec(kvTable + requestTable + messageTable + signatureTable + transferTable); err != nil {
		return nil, err
	}

	// 2. A stmt cache + db.
	return &StateDB{
		stmtCache: database.NewStmtCache(db),
	}, nil
}

func (st *StateDB) Close() {
	st.stmtCache.Clear()
}

func (st *StateDB) GetKeyedValue(key ethcommon.Hash) (ethcommon.Hash, bool, error) {
	query := `SELECT value FROM kv WHERE key = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return ethcommon.Hash{}, false, err
	}

	var value string
	if err := stmt.QueryRow(key.String()[2:]).Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return ethcommon.Hash{}, false, nil
		}
		return ethcommon.Hash{}, false, err
	}

	return common.HexStrToBytes32(value), true, nil
}

func (st *StateDB) SetKeyedValue(key, value ethcommon.Hash) error {
	query := `INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}

	if _, err := stmt.Exec(key.String()[2:], value.String()[2:]); err != nil {
		return err
	}

	return nil
}

// InsertRequest ignores a request already stored.
func (st *StateDB) InsertRequest(req *Request) error {
	query := `INSERT OR IGNORE INTO request (` + requestParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}

	r := (&sqlRequest{}).encode(req)
	if _, err := stmt.Exec(
		r.ID,
		r.Chain,
		r.SourceChain,
		r.TxHash,
		r.LogIndex,
		r.Sender,
		r.Recipient,
		r.Amount,
	); err != nil {
		return err
	}

	return nil
}

func (st *StateDB) GetRequest(id ethcommon.Hash) (*Request, bool, error) {
	query := `SELECT` + requestParamList + `FROM request WHERE id = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, false, err
	}

	var r sqlRequest
	if err := stmt.QueryRow(id.String()[2:]).Scan(
		&r.ID,
		&r.Chain,
		&r.SourceChain,
		&r.TxHash,
		&r.LogIndex,
		&r.Sender,
		&r.Recipient,
		&r.Amount,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	req, err := r.decode()
	if err != nil {
		return nil, false, err
	}
	return req, true, nil
}

// GetRequestsByRecipient returns requests in insertion order.
func (st *StateDB) GetRequestsByRecipient(recipient ethcommon.Address) ([]*Request, error) {
	query := `SELECT` + requestParamList + `FROM request WHERE recipient = ? ORDER BY rowid`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(common.ByteSliceToPureHexStr(recipient.Bytes()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []*Request{}
	for rows.Next() {
		var r sqlRequest
		if err := rows.Scan(
			&r.ID,
			&r.Chain,
			&r.SourceChain,
			&r.TxHash,
			&r.LogIndex,
			&r.Sender,
			&r.Recipient,
			&r.Amount,
		); err != nil {
			return nil, err
		}
		req, err := r.decode()
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// InsertMessage stores a newly submitted message as pending. A message
// already stored is left alone.
func (st *StateDB) InsertMessage(msg *Message) error {
	if msg.Status != agreement.MessageStatusPending {
		return fmt.Errorf("%w: new message must be pending, got %s", ErrInvalidStatusTransition, msg.Status)
	}

	query := `INSERT OR IGNORE INTO message (` + messageParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}

	m := (&sqlMessage{}).encode(msg)
	if _, err := stmt.Exec(
		m.ID,
		m.Chain,
		m.Recipient,
		m.Amount,
		m.SourceChain,
		m.Status,
		m.Reason,
		m.SubmitTxHash,
	); err != nil {
		return err
	}

	return nil
}

// UpdateMessageStatus finalizes a pending message. Only pending rows move;
// repeating the update that finalized a row is a no-op.
func (st *StateDB) UpdateMessageStatus(
	id ethcommon.Hash,
	status agreement.MessageStatus,
	reason string,
	txHash ethcommon.Hash,
) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: cannot move to %s", ErrInvalidStatusTransition, status)
	}

	query := `UPDATE message SET status = ?, reason = ?, finalTxHash = ? WHERE id = ? AND status = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}

	res, err := stmt.Exec(status, reason, txHash.String()[2:], id.String()[2:], agreement.MessageStatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	stored, ok, err := st.GetMessage(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, id.String())
	}
	if stored.Status == status && stored.FinalTxHash == txHash {
		return nil
	}
	return fmt.Errorf("%w: %s is %s", ErrInvalidStatusTransition, id.String(), stored.Status)
}

// UpdatePendingMessageContent overwrites recipient and amount of a pending
// message. Terminal rows are left alone.
func (st *StateDB) UpdatePendingMessageContent(id ethcommon.Hash, recipient ethcommon.Address, amount *big.Int) error {
	query := `UPDATE message SET recipient = ?, amount = ? WHERE id = ? AND status = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}

	_, err = stmt.Exec(
		common.ByteSliceToPureHexStr(recipient.Bytes()),
		amount.String(),
		id.String()[2:],
		agreement.MessageStatusPending,
	)
	return err
}

func (st *StateDB) GetMessage(id ethcommon.Hash) (*Message, bool, error) {
	query := `SELECT` + messageParamList + `FROM message WHERE id = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, false, err
	}

	m, err := scanMessage(stmt.QueryRow(id.String()[2:]))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return m, true, nil
}

func (st *StateDB) GetMessagesByStatus(status agreement.MessageStatus) ([]*Message, error) {
	query := `SELECT` + messageParamList + `FROM message WHERE status = ? ORDER BY rowid`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []*Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*Message, error) {
	var (
		m           sqlMessage
		finalTxHash sql.NullString
	)
	if err := row.Scan(
		&m.ID,
		&m.Chain,
		&m.Recipient,
		&m.Amount,
		&m.SourceChain,
		&m.Status,
		&m.Reason,
		&m.SubmitTxHash,
		&finalTxHash,
	); err != nil {
		return nil, err
	}
	if finalTxHash.Valid {
		m.FinalTxHash = finalTxHash.String
	}
	return m.decode()
}

func (st *StateDB) InsertSignature(sig *Signature) error {
	query := `INSERT OR IGNORE INTO signature (` + signatureParamList + `) VALUES (?, ?, ?, ?, ?)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}

	if _, err := stmt.Exec(
		sig.ID.String()[2:],
		common.ByteSliceToPureHexStr(sig.Validator.Bytes()),
		string(sig.Chain),
		sig.Signature,
		sig.TxHash.String()[2:],
	); err != nil {
		return err
	}

	return nil
}

func (st *StateDB) GetSignatures(id ethcommon.Hash) ([]*Signature, error) {
	query := `SELECT` + signatureParamList + `FROM signature WHERE id = ? ORDER BY rowid`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(id.String()[2:])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sigs := []*Signature{}
	for rows.Next() {
		var (
			sigID, validator, chain, txHash string
			signature                       []byte
		)
		if err := rows.Scan(&sigID, &validator, &chain, &signature, &txHash); err != nil {
			return nil, err
		}
		sigs = append(sigs, &Signature{
			ID:        common.HexStrToBytes32("0x" + sigID),
			Validator: ethcommon.HexToAddress(validator),
			Chain:     agreement.Side(chain),
			Signature: signature,
			TxHash:    common.HexStrToBytes32("0x" + txHash),
		})
	}

	return sigs, rows.Err()
}

func (st *StateDB) InsertTransfer(tr *Transfer) error {
	query := `INSERT OR IGNORE INTO transfer (` + transferParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}

	if _, err := stmt.Exec(
		string(tr.Chain),
		tr.Seq,
		tr.TxHash.String()[2:],
		tr.LogIndex,
		common.ByteSliceToPureHexStr(tr.From.Bytes()),
		common.ByteSliceToPureHexStr(tr.To.Bytes()),
		tr.Amount.String(),
	); err != nil {
		return err
	}

	return nil
}

// GetTransfers returns transfers on chain that involve addr, oldest first.
func (st *StateDB) GetTransfers(chain agreement.Side, addr ethcommon.Address) ([]*Transfer, error) {
	query := `SELECT` + transferParamList + `FROM transfer
		WHERE chain = ? AND (sender = ? OR receiver = ?) ORDER BY seq`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	hexAddr := common.ByteSliceToPureHexStr(addr.Bytes())
	rows, err := stmt.Query(string(chain), hexAddr, hexAddr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transfers := []*Transfer{}
	for rows.Next() {
		var (
			side, txHash, from, to, amount string
			seq                            uint64
			logIndex                       uint
		)
		if err := rows.Scan(&side, &seq, &txHash, &logIndex, &from, &to, &amount); err != nil {
			return nil, err
		}
		v, err := common.DecStrToBigInt(amount)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, &Transfer{
			Chain:    agreement.Side(side),
			Seq:      seq,
			TxHash:   common.HexStrToBytes32("0x" + txHash),
			LogIndex: logIndex,
			From:     ethcommon.HexToAddress(from),
			To:       ethcommon.HexToAddress(to),
			Amount:   v,
		})
	}

	return transfers, rows.Err()
}
