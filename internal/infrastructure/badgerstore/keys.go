package badgerstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
)

// Esquema de claves. El separador 0x00 evita que un ID sea prefijo de otro.
//
//	part\x00<id>                         -> Part (JSON)
//	partcode\x00<code>                   -> id
//	stock\x00<part>\x00<location>        -> LocationStock (JSON)
//	mov\x00<part>\x00<micros>\x00<seq>   -> Movement (JSON)
//	movid\x00<id>                        -> clave mov
var keySequence = []byte("seq\x00movements")

const sep = "\x00"

func partKey(id string) []byte       { return []byte("part" + sep + id) }
func partCodeKey(code string) []byte { return []byte("partcode" + sep + code) }

func stockPrefix(partID string) []byte { return []byte("stock" + sep + partID + sep) }

func stockKey(key entity.StockKey) []byte {
	return append(stockPrefix(key.PartID), key.Location.String()...)
}

func movementPrefix(partID string) []byte { return []byte("mov" + sep + partID + sep) }

// movementKey ordena por performed_at y luego seq dentro del repuesto.
func movementKey(m *entity.Movement) []byte {
	return append(movementPrefix(m.PartID), fmt.Sprintf("%020d%s%020d", m.PerformedAt.UnixMicro(), sep, m.Seq)...)
}

func movementIDKey(id string) []byte { return []byte("movid" + sep + id) }

func getJSON(txn *badger.Txn, key []byte, out any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, out) }); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func jsonUnmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func nowUTC() time.Time { return time.Now().UTC() }
