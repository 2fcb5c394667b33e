package eval

import (
	"fmt"

	"github.com/wbrown/janus-eve/eve"
	"github.com/wbrown/janus-eve/eve/block"
	"github.com/wbrown/janus-eve/eve/index"
)

// QuadRecord is one dumped fact, with its entity (and value, when the value
// is itself a minted Id) decomposed into IdParts so the dump survives a
// process boundary without relying on in-memory hash caches (spec.md §4.8).
type QuadRecord struct {
	E IdParts

	A string

	VType eve.ValueType
	VData []byte  // encoded scalar, present unless VType is TypeReference
	VRef  IdParts // decomposed reference, present iff VType is TypeReference

	N string
}

// IdParts mirrors eve.IdParts for the dump's public surface, avoiding a
// direct dependency from callers on the eve package's internal layout.
type IdParts struct {
	Hash   [20]byte
	Source string
}

// DatabaseDump is one database's complete fact set.
type DatabaseDump struct {
	Name  string
	Quads []QuadRecord
}

// Dump is a whole evaluation's portable save format: one DatabaseDump per
// registered database, in registration order.
type Dump struct {
	Databases []DatabaseDump
}

func toIdParts(p eve.IdParts) IdParts {
	return IdParts{Hash: p.Hash, Source: p.Source}
}

func fromIdParts(p IdParts) eve.IdParts {
	return eve.IdParts{Hash: p.Hash, Source: p.Source}
}

func encodeQuad(q eve.Quad) QuadRecord {
	rec := QuadRecord{
		E: toIdParts(q.E.Decompose()),
		A: q.A.String(),
		N: q.N.String(),
	}

	switch v := q.V.(type) {
	case eve.Id:
		rec.VType = eve.TypeReference
		rec.VRef = toIdParts(v.Decompose())
	case *eve.Id:
		rec.VType = eve.TypeReference
		rec.VRef = toIdParts(v.Decompose())
	default:
		rec.VType = eve.Type(q.V)
		rec.VData = eve.EncodeValue(q.V)
	}

	return rec
}

func decodeQuad(rec QuadRecord) (eve.Quad, error) {
	e := eve.Recompose(fromIdParts(rec.E))

	var v eve.Value
	if rec.VType == eve.TypeReference {
		v = eve.Recompose(fromIdParts(rec.VRef))
	} else {
		decoded, err := eve.DecodeValue(rec.VType, rec.VData)
		if err != nil {
			return eve.Quad{}, fmt.Errorf("eval: decode quad value: %w", err)
		}
		v = decoded
	}

	return eve.Quad{
		E: e,
		A: eve.NewAttribute(rec.A),
		V: v,
		N: eve.NodeID(rec.N),
	}, nil
}

// Save dumps every database e owns as a Dump. Provenance is not exploded
// per node id: each logical (e,a,v) present in a database appears exactly
// once, matching Database.ToTriples.
func Save(e *Evaluation) Dump {
	var dump Dump
	for _, db := range e.Databases() {
		triples := db.ToTriples()
		quads := make([]QuadRecord, len(triples))
		for i, q := range triples {
			quads[i] = encodeQuad(q)
		}
		dump.Databases = append(dump.Databases, DatabaseDump{Name: db.Name(), Quads: quads})
	}
	return dump
}

// loadAction stages every quad in a dumped database as an insertion,
// preserving each quad's original node id so reloaded provenance matches
// what was saved.
type loadAction struct {
	database string
	records  []QuadRecord
}

func (a *loadAction) Execute(_ *index.MultiIndex, _ []block.Binding, changes *index.ChangeSet) error {
	for _, rec := range a.records {
		q, err := decodeQuad(rec)
		if err != nil {
			return err
		}
		changes.Store(a.database, q.E, q.A, q.V, q.N)
	}
	return nil
}

// Load reconstructs a fresh, running Evaluation from a Dump: one Database
// per dumped entry, populated by driving a single fixpoint over insertion
// actions for every database at once. Since a freshly loaded evaluation
// owns no blocks, that fixpoint reaches Quiescent after its first commit —
// blocks are added by the caller afterward, via Database.AddBlock, the same
// way any other evaluation is built up.
func Load(opts Options, dump Dump) *Evaluation {
	e := NewEvaluation(opts)

	actions := make([]block.Action, 0, len(dump.Databases))
	for _, dbDump := range dump.Databases {
		db := NewDatabase(dbDump.Name)
		e.AddDatabase(db)
		actions = append(actions, &loadAction{database: dbDump.Name, records: dbDump.Quads})
	}

	done := make(chan struct{})
	e.ExecuteActions(actions, func(*index.ChangeSet) { close(done) })
	<-done

	return e
}
