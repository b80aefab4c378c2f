package termbank

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
	"satur/internal/coreconfig"
	"satur/internal/corelog"
	"satur/internal/errcore"
	"satur/internal/raceguard"
	"satur/internal/signature"
	"satur/internal/typetab"
	"satur/internal/varbank"
)

type bucketKey [16]byte

// Bank is the owning store for hash-consed term cells (spec.md §4.2). It is
// not thread-safe; see internal/raceguard.
type Bank struct {
	Sig   *signature.Table
	Types *typetab.Table
	Vars  *varbank.Bank
	cfg   coreconfig.Config
	log   corelog.Logger

	appStore map[int]map[bucketKey][]*Term // arity -> hash bucket -> candidates
	varCells map[*varbank.FreeVar]*Term
	dbCells  map[*varbank.DBVar]*Term
	cells    map[int64]*Term // every shared cell, for GC traversal

	nextID    int64
	gcParity  bool
	roots     []func() []*Term
	trueTerm  *Term
	falseTerm *Term
	minTerm   *Term

	guard raceguard.Guard
}

// New creates a term bank over sig/types/vars using cfg for default
// weights. A nil logger defaults to corelog.Discard.
func New(sig *signature.Table, types *typetab.Table, vars *varbank.Bank, cfg coreconfig.Config, log corelog.Logger) *Bank {
	if log == nil {
		log = corelog.Discard
	}
	b := &Bank{
		Sig: sig, Types: types, Vars: vars, cfg: cfg, log: log,
		appStore: make(map[int]map[bucketKey][]*Term),
		varCells: make(map[*varbank.FreeVar]*Term),
		dbCells:  make(map[*varbank.DBVar]*Term),
		cells:    make(map[int64]*Term),
		nextID:   1,
	}
	b.trueTerm = b.internApp(signature.True, nil, types.Base(typetab.Bool))
	b.falseTerm = b.internApp(signature.False, nil, types.Base(typetab.Bool))
	return b
}

// True and False return the bank's shared $true/$false cells, always
// implicitly live (spec.md §4.2: "a sweep always auto-marks $true, $false").
func (b *Bank) True() *Term  { return b.trueTerm }
func (b *Bank) False() *Term { return b.falseTerm }

// RegisterRoot registers a collaborator-supplied root-enumeration function
// consulted by every GCSweep.
func (b *Bank) RegisterRoot(fn func() []*Term) {
	b.roots = append(b.roots, fn)
}

// CreateMinTerm idempotently creates and caches a designated ground "small"
// term for default right-hand-side substitutions (spec.md §4.2).
func (b *Bank) CreateMinTerm(code signature.Code) *Term {
	if b.minTerm != nil {
		return b.minTerm
	}
	b.minTerm = b.internApp(code, nil, b.Types.Base(b.Sig.TypeOf(code).Result))
	return b.minTerm
}

func hashKey(fcode signature.Code, args []*Term) bucketKey {
	h, _ := blake2b.New(16, nil)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(fcode))
	h.Write(buf[:])
	for _, a := range args {
		binary.LittleEndian.PutUint64(buf[:], uint64(a.ID))
		h.Write(buf[:])
	}
	var out bucketKey
	copy(out[:], h.Sum(nil))
	return out
}

func sameArgs(a, b []*Term) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] { // pointer identity: args are already-shared cells
			return false
		}
	}
	return true
}

// internVar returns the interned shared cell for v, creating it on first
// use.
func (b *Bank) internVar(v *varbank.FreeVar) *Term {
	if t, ok := b.varCells[v]; ok {
		return t
	}
	t := &Term{ID: b.allocID(), Kind: KindFreeVar, Var: v, Typ: v.Type,
		Weight: b.cfg.DefaultVariableWeight, VCount: 1}
	b.varCells[v] = t
	b.cells[t.ID] = t
	return t
}

// internDB returns the interned shared cell for d, creating it on first
// use.
func (b *Bank) internDB(d *varbank.DBVar) *Term {
	if t, ok := b.dbCells[d]; ok {
		return t
	}
	t := &Term{ID: b.allocID(), Kind: KindDBVar, DB: d, Typ: d.Type,
		Weight: b.cfg.DefaultVariableWeight, VCount: 0}
	b.dbCells[d] = t
	b.cells[t.ID] = t
	return t
}

// internApp finds-or-creates the shared cell for an application of fcode to
// already-shared args, merging property bits into an existing cell on a
// hash hit (spec.md §4.2).
func (b *Bank) internApp(fcode signature.Code, args []*Term, typ *typetab.Type) *Term {
	return b.internAppProps(fcode, args, typ, 0, true)
}

func (b *Bank) internAppProps(fcode signature.Code, args []*Term, typ *typetab.Type, newProps Props, merge bool) *Term {
	arity := len(args)
	bucket := b.appStore[arity]
	if bucket == nil {
		bucket = make(map[bucketKey][]*Term)
		b.appStore[arity] = bucket
	}
	key := hashKey(fcode, args)
	for _, cand := range bucket[key] {
		if cand.FCode == fcode && sameArgs(cand.Args, args) {
			if merge {
				cand.Props |= newProps
			}
			return cand
		}
	}
	weight := b.cfg.DefaultFunctionWeight
	vcount, fcount := 0, 0
	for _, a := range args {
		weight += a.Weight
		vcount += a.VCount
		fcount += a.FCount
	}
	fcount++
	t := &Term{
		ID: b.allocID(), Kind: KindApp, FCode: fcode, Args: args, Typ: typ,
		Weight: weight, VCount: vcount, FCount: fcount, Props: newProps,
	}
	bucket[key] = append(bucket[key], t)
	b.cells[t.ID] = t
	return t
}

func (b *Bank) allocID() int64 {
	id := b.nextID
	b.nextID++
	return id
}

// Insert copies an unshared (or externally owned) term into the bank,
// resolving free-variable bindings per mode and reusing existing shared
// cells wherever possible (spec.md §4.2).
func (b *Bank) Insert(t *Term, mode DerefMode) *Term {
	b.guard.Enter("Bank.Insert")
	defer b.guard.Leave()
	return b.insert(t, mode, 0, true)
}

// InsertNoProps behaves like Insert but never merges property bits into an
// existing cell on a hash hit, and never carries input property bits onto
// a freshly created cell.
func (b *Bank) InsertNoProps(t *Term, mode DerefMode) *Term {
	b.guard.Enter("Bank.InsertNoProps")
	defer b.guard.Leave()
	return b.insert(t, mode, 0, false)
}

func (b *Bank) insert(t *Term, mode DerefMode, newProps Props, merge bool) *Term {
	switch t.Kind {
	case KindFreeVar:
		shared := b.internVar(t.Var)
		return Deref(shared, mode)
	case KindDBVar:
		return b.internDB(t.DB)
	default:
		args := make([]*Term, len(t.Args))
		for i, a := range t.Args {
			args[i] = b.insert(a, mode, 0, merge)
		}
		props := newProps
		if merge {
			props |= t.Props
		}
		return b.internAppProps(t.FCode, args, t.Typ, props, merge)
	}
}

// InsertRepl inserts t with every subterm identical (by shared identity) to
// old replaced by new before re-consing upward.
func (b *Bank) InsertRepl(t, old, new *Term) *Term {
	b.guard.Enter("Bank.InsertRepl")
	defer b.guard.Leave()
	return b.insertRepl(t, old, new)
}

func (b *Bank) insertRepl(t, old, new *Term) *Term {
	if t == old {
		return new
	}
	switch t.Kind {
	case KindFreeVar:
		return b.internVar(t.Var)
	case KindDBVar:
		return b.internDB(t.DB)
	default:
		args := make([]*Term, len(t.Args))
		changed := false
		for i, a := range t.Args {
			args[i] = b.insertRepl(a, old, new)
			if args[i] != a {
				changed = true
			}
		}
		if !changed && t.ID != 0 {
			return t
		}
		return b.internApp(t.FCode, args, t.Typ)
	}
}

// InsertInstantiated inserts t with every free variable in subst replaced
// by its image, short-circuiting on already-shared ground subterms (spec.md
// §4.2: "exploit the fact that every proper subterm is already shared").
func (b *Bank) InsertInstantiated(t *Term, subst map[*varbank.FreeVar]*Term) *Term {
	b.guard.Enter("Bank.InsertInstantiated")
	defer b.guard.Leave()
	return b.insertInstantiated(t, subst)
}

func (b *Bank) insertInstantiated(t *Term, subst map[*varbank.FreeVar]*Term) *Term {
	if t.ID != 0 && t.IsGround() {
		return t
	}
	switch t.Kind {
	case KindFreeVar:
		if repl, ok := subst[t.Var]; ok {
			return repl
		}
		return b.internVar(t.Var)
	case KindDBVar:
		return b.internDB(t.DB)
	default:
		args := make([]*Term, len(t.Args))
		for i, a := range t.Args {
			args[i] = b.insertInstantiated(a, subst)
		}
		return b.internApp(t.FCode, args, t.Typ)
	}
}

// InsertOpt is an alias for InsertInstantiated with an empty substitution:
// it relies on the same "ground subterms are returned unchanged" shortcut
// with no variables to replace.
func (b *Bank) InsertOpt(t *Term) *Term {
	return b.InsertInstantiated(t, nil)
}

// InsertDisjoint inserts t with every free variable renamed to a fresh
// variable in the given bank parity (0 or 1), producing a variable-disjoint
// copy; repeated occurrences of the same source variable map to the same
// fresh variable within one call (spec.md §4.2, §4.3).
func (b *Bank) InsertDisjoint(t *Term, parity int) *Term {
	b.guard.Enter("Bank.InsertDisjoint")
	defer b.guard.Leave()
	rename := make(map[*varbank.FreeVar]*varbank.FreeVar)
	return b.insertDisjoint(t, parity, rename)
}

func (b *Bank) insertDisjoint(t *Term, parity int, rename map[*varbank.FreeVar]*varbank.FreeVar) *Term {
	switch t.Kind {
	case KindFreeVar:
		fresh, ok := rename[t.Var]
		if !ok {
			fresh = b.Vars.Fresh(parity, t.Var.Type)
			rename[t.Var] = fresh
		}
		return b.internVar(fresh)
	case KindDBVar:
		return b.internDB(t.DB)
	default:
		args := make([]*Term, len(t.Args))
		for i, a := range t.Args {
			args[i] = b.insertDisjoint(a, parity, rename)
		}
		return b.internApp(t.FCode, args, t.Typ)
	}
}

// Find looks up t without inserting; it fails if any subterm (including t
// itself) has never been shared.
func (b *Bank) Find(t *Term) (*Term, bool) {
	switch t.Kind {
	case KindFreeVar:
		c, ok := b.varCells[t.Var]
		return c, ok
	case KindDBVar:
		c, ok := b.dbCells[t.DB]
		return c, ok
	default:
		args := make([]*Term, len(t.Args))
		for i, a := range t.Args {
			c, ok := b.Find(a)
			if !ok {
				return nil, false
			}
			args[i] = c
		}
		key := hashKey(t.FCode, args)
		for _, cand := range b.appStore[len(args)][key] {
			if cand.FCode == t.FCode && sameArgs(cand.Args, args) {
				return cand, true
			}
		}
		return nil, false
	}
}

// App finds-or-inserts the application of code to args, validating arity
// against the signature (spec.md §4.2: "arity mismatches... fail with a
// syntax-error kind").
func (b *Bank) App(code signature.Code, args []*Term) (*Term, error) {
	arity := b.Sig.Arity(code)
	if arity >= 0 && len(args) != arity {
		return nil, errcore.TypeMismatchf("symbol %q expects %d argument(s), got %d", b.Sig.Name(code), arity, len(args))
	}
	resolved := make([]*Term, len(args))
	for i, a := range args {
		resolved[i] = b.Insert(a, DerefAlways)
	}
	typ := b.Types.Base(b.Sig.TypeOf(code).Result)
	b.guard.Enter("Bank.App")
	defer b.guard.Leave()
	return b.internApp(code, resolved, typ), nil
}

// AppTyped is App but with an explicit result type, used by the lambda
// normaliser for λ/phony-application cells whose type is not simply the
// signature's declared result (it depends on the arguments' types).
func (b *Bank) AppTyped(code signature.Code, args []*Term, typ *typetab.Type) *Term {
	b.guard.Enter("Bank.AppTyped")
	defer b.guard.Leave()
	return b.internApp(code, args, typ)
}

// Var returns the shared cell wrapping a free variable, in its current
// (possibly bound) state.
func (b *Bank) Var(v *varbank.FreeVar) *Term {
	b.guard.Enter("Bank.Var")
	defer b.guard.Leave()
	return b.internVar(v)
}

// DB returns the shared cell wrapping a de Bruijn variable.
func (b *Bank) DB(d *varbank.DBVar) *Term {
	b.guard.Enter("Bank.DB")
	defer b.guard.Leave()
	return b.internDB(d)
}

// ArrowPrepend interns the arrow type obtained by prepending sort to t's
// argument vector (used to build a λ-abstraction's type from its bound
// variable's sort and its body's type).
func (b *Bank) ArrowPrepend(sort typetab.SortID, t *typetab.Type) *typetab.Type {
	args := make([]typetab.SortID, 0, len(t.Args)+1)
	args = append(args, sort)
	args = append(args, t.Args...)
	return b.Types.Intern(args, t.Result)
}

// ArrowDrop interns the arrow type obtained by dropping the first n
// argument sorts of t (used when applying n arguments to a term of arrow
// type).
func (b *Bank) ArrowDrop(t *typetab.Type, n int) *typetab.Type {
	if n >= len(t.Args) {
		return b.Types.Base(t.Result)
	}
	return b.Types.Intern(t.Args[n:], t.Result)
}

// GCMark marks t and every subterm reachable from it, following a bound
// free variable's Binding chain, as live for the current sweep epoch. It
// short-circuits on an already-marked cell, so marking a shared DAG costs
// time proportional to its distinct cells, not its unfolded tree size.
func (b *Bank) GCMark(t *Term) {
	if t == nil || t.gcMark == b.gcParity {
		return
	}
	t.gcMark = b.gcParity
	if t.Kind == KindFreeVar && t.Binding != nil {
		b.GCMark(t.Binding)
	}
	for _, a := range t.Args {
		b.GCMark(a)
	}
}

// GCSweep marks $true, $false, the min term, and every registered root, then
// removes every unmarked cell from the bank's stores and flips the mark
// parity for the next epoch. It returns the number of cells freed (spec.md
// §4.2's mark-and-sweep collector).
func (b *Bank) GCSweep() int {
	b.guard.Enter("Bank.GCSweep")
	defer b.guard.Leave()

	b.gcParity = !b.gcParity
	b.GCMark(b.trueTerm)
	b.GCMark(b.falseTerm)
	if b.minTerm != nil {
		b.GCMark(b.minTerm)
	}
	for _, root := range b.roots {
		for _, t := range root() {
			b.GCMark(t)
		}
	}

	freed := 0
	for id, t := range b.cells {
		t.whnf = nil // spec.md §4.5: WHNF memoisation is only sound if invalidated on sweep
		if t.gcMark != b.gcParity {
			delete(b.cells, id)
			freed++
		}
	}
	for v, t := range b.varCells {
		if t.gcMark != b.gcParity {
			delete(b.varCells, v)
		}
	}
	for d, t := range b.dbCells {
		if t.gcMark != b.gcParity {
			delete(b.dbCells, d)
		}
	}
	for arity, bucket := range b.appStore {
		for key, cands := range bucket {
			live := cands[:0]
			for _, c := range cands {
				if c.gcMark == b.gcParity {
					live = append(live, c)
				}
			}
			if len(live) == 0 {
				delete(bucket, key)
			} else {
				bucket[key] = live
			}
		}
		if len(bucket) == 0 {
			delete(b.appStore, arity)
		}
	}

	b.log.Debug("gc sweep complete", "freed", freed, "live", len(b.cells))
	return freed
}
