package server

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/concurrency"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/indexmanager"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/storage/index"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/tuple"
)

type session struct {
	conn net.Conn
	srv  *Server
}

func newSession(conn net.Conn, srv *Server) *session {
	return &session{conn: conn, srv: srv}
}

func (s *session) run() {
	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if strings.EqualFold(fields[0], "QUIT") {
			fmt.Fprintln(s.conn, "OK bye")
			return
		}
		fmt.Fprintln(s.conn, s.dispatch(fields[0], fields[1:]))
	}
}

func (s *session) dispatch(cmd string, args []string) string {
	switch strings.ToUpper(cmd) {
	case "BEGIN":
		return fmt.Sprintf("OK %d", s.srv.control.BeginTransaction())
	case "LOG":
		return s.logObject(args)
	case "VALIDATE":
		return s.validate(args)
	case "END":
		return s.end(args)
	case "ALGORITHM":
		return "OK " + s.srv.control.Algorithm().String()
	case "SWITCH":
		return s.switchAlgorithm(args)
	case "CREATE":
		return s.createIndex(args)
	case "OPEN":
		return s.openIndex(args)
	case "DROP":
		return s.dropIndex(args)
	case "INSERT":
		return s.insert(args)
	case "DELETE":
		return s.delete(args)
	case "SEARCH":
		return s.search(args)
	case "RANGE":
		return s.rangeSearch(args)
	default:
		return fmt.Sprintf("ERR unknown command %q", cmd)
	}
}

func (s *session) logObject(args []string) string {
	if len(args) < 2 {
		return "ERR usage: LOG <tid> <field=value>..."
	}
	tid, err := parseTID(args[0])
	if err != nil {
		return "ERR " + err.Error()
	}
	row, err := parseRow(args[1:])
	if err != nil {
		return "ERR " + err.Error()
	}
	if !s.srv.control.LogObject(row, tid) {
		return "DENIED"
	}
	return "OK"
}

func (s *session) validate(args []string) string {
	if len(args) < 3 {
		return "ERR usage: VALIDATE <tid> READ|WRITE <field=value>..."
	}
	tid, err := parseTID(args[0])
	if err != nil {
		return "ERR " + err.Error()
	}
	action, err := parseAction(args[1])
	if err != nil {
		return "ERR " + err.Error()
	}
	row, err := parseRow(args[2:])
	if err != nil {
		return "ERR " + err.Error()
	}
	if !s.srv.control.ValidateObject(row, tid, action).Allowed {
		return "DENIED"
	}
	return "OK"
}

func (s *session) end(args []string) string {
	if len(args) != 1 {
		return "ERR usage: END <tid>"
	}
	tid, err := parseTID(args[0])
	if err != nil {
		return "ERR " + err.Error()
	}
	s.srv.control.EndTransaction(tid)
	return "OK"
}

func (s *session) switchAlgorithm(args []string) string {
	if len(args) != 1 {
		return "ERR usage: SWITCH <algorithm>"
	}
	algorithm, err := concurrency.ParseAlgorithm(args[0])
	if err != nil {
		return "ERR " + err.Error()
	}
	if err := s.srv.control.SwitchAlgorithm(algorithm); err != nil {
		return "ERR " + err.Error()
	}
	return "OK " + algorithm.String()
}

func (s *session) createIndex(args []string) string {
	if len(args) != 3 {
		return "ERR usage: CREATE <table> <column> <int|float|string>"
	}
	keyType, err := indexmanager.ParseKeyType(args[2])
	if err != nil {
		return "ERR " + err.Error()
	}
	desc := descriptor(args[0], args[1])
	if _, err := s.srv.indexes.Create(desc, keyType); err != nil {
		return "ERR " + err.Error()
	}
	s.srv.rememberKeyType(desc, keyType)
	return "OK"
}

func (s *session) openIndex(args []string) string {
	if len(args) != 3 {
		return "ERR usage: OPEN <table> <column> <int|float|string>"
	}
	keyType, err := indexmanager.ParseKeyType(args[2])
	if err != nil {
		return "ERR " + err.Error()
	}
	desc := descriptor(args[0], args[1])
	if _, err := s.srv.indexes.Open(desc, keyType); err != nil {
		return "ERR " + err.Error()
	}
	s.srv.rememberKeyType(desc, keyType)
	return "OK"
}

func (s *session) dropIndex(args []string) string {
	if len(args) != 2 {
		return "ERR usage: DROP <table> <column>"
	}
	desc := descriptor(args[0], args[1])
	if err := s.srv.indexes.Drop(desc); err != nil {
		return "ERR " + err.Error()
	}
	s.srv.forgetKeyType(desc)
	return "OK"
}

func (s *session) insert(args []string) string {
	if len(args) != 4 {
		return "ERR usage: INSERT <table> <column> <key> <rid>"
	}
	h, err := s.handle(args[0], args[1])
	if err != nil {
		return "ERR " + err.Error()
	}
	rid, err := parseRID(args[3])
	if err != nil {
		return "ERR " + err.Error()
	}
	if err := h.Insert(args[2], rid); err != nil {
		return "ERR " + err.Error()
	}
	return "OK"
}

func (s *session) delete(args []string) string {
	if len(args) != 4 {
		return "ERR usage: DELETE <table> <column> <key> <rid>"
	}
	h, err := s.handle(args[0], args[1])
	if err != nil {
		return "ERR " + err.Error()
	}
	rid, err := parseRID(args[3])
	if err != nil {
		return "ERR " + err.Error()
	}
	if err := h.Delete(args[2], rid); err != nil {
		return "ERR " + err.Error()
	}
	return "OK"
}

func (s *session) search(args []string) string {
	if len(args) != 3 {
		return "ERR usage: SEARCH <table> <column> <key>"
	}
	h, err := s.handle(args[0], args[1])
	if err != nil {
		return "ERR " + err.Error()
	}
	rids, err := h.Search(args[2])
	if err != nil {
		return "ERR " + err.Error()
	}
	return formatRIDs(rids)
}

func (s *session) rangeSearch(args []string) string {
	if len(args) != 4 {
		return "ERR usage: RANGE <table> <column> <start> <end>"
	}
	h, err := s.handle(args[0], args[1])
	if err != nil {
		return "ERR " + err.Error()
	}
	rids, err := h.Range(args[2], args[3])
	if err != nil {
		return "ERR " + err.Error()
	}
	return formatRIDs(rids)
}

func (s *session) handle(table, column string) (indexmanager.Handle, error) {
	desc := descriptor(table, column)
	keyType, ok := s.srv.keyTypeFor(desc)
	if !ok {
		return nil, fmt.Errorf("index %s not open; CREATE or OPEN it first", desc.String())
	}
	return s.srv.indexes.Open(desc, keyType)
}

func descriptor(table, column string) index.Descriptor {
	return index.Descriptor{Table: table, Column: column, Kind: index.BTree}
}

func parseTID(s string) (primitives.TransactionID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad transaction id %q", s)
	}
	return primitives.TransactionID(v), nil
}

func parseRID(s string) (primitives.RowID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad row id %q", s)
	}
	return primitives.RowID(v), nil
}

func parseAction(s string) (primitives.Action, error) {
	switch strings.ToUpper(s) {
	case "READ":
		return primitives.Read, nil
	case "WRITE":
		return primitives.Write, nil
	default:
		return 0, fmt.Errorf("bad action %q, want READ or WRITE", s)
	}
}

// parseRow turns field=value tokens into a row. Values stay textual; the
// object id derivation only needs a stable rendering.
func parseRow(tokens []string) (tuple.Row, error) {
	row := make(tuple.Row, len(tokens))
	for _, token := range tokens {
		field, value, ok := strings.Cut(token, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("bad field %q, want field=value", token)
		}
		row[field] = value
	}
	return row, nil
}

func formatRIDs(rids []primitives.RowID) string {
	if len(rids) == 0 {
		return "OK"
	}
	parts := make([]string, len(rids))
	for i, rid := range rids {
		parts[i] = strconv.FormatInt(int64(rid), 10)
	}
	return "OK " + strings.Join(parts, " ")
}
