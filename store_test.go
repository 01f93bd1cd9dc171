package orm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDB answers every select with the queued records and remembers
// what it was asked.
type recordingDB struct {
	statements []ParameterizedSQL
	rows       []DBRecords
	rowsAffect int
}

func (r *recordingDB) SelectSQLParameterized(_ context.Context, p ParameterizedSQL) (DBRecords, error) {
	r.statements = append(r.statements, p)
	if len(r.rows) == 0 {
		return DBRecords{}, nil
	}
	next := r.rows[0]
	r.rows = r.rows[1:]
	return next, nil
}

func (r *recordingDB) ExecOneSQLParameterized(_ context.Context, p ParameterizedSQL) BasicSQLResult {
	r.statements = append(r.statements, p)
	return BasicSQLResult{RowsAffected: r.rowsAffect}
}

func (r *recordingDB) Dialect() Dialect { return DialectPostgres }

func (r *recordingDB) RunInTransaction(ctx context.Context, fn func(Transaction) error) error {
	return fn(r)
}

func (r *recordingDB) Status(context.Context) (StatusStruct, error) { return StatusStruct{}, nil }
func (r *recordingDB) IsConnected(context.Context) bool             { return true }
func (r *recordingDB) Close() error                                 { return nil }

func (r *recordingDB) last() ParameterizedSQL { return r.statements[len(r.statements)-1] }

type tag struct {
	ID   int64
	Name string
	Note string
}

type tagPatch struct {
	Name *string
	Note *string
}

type tagCodec struct{}

func (tagCodec) Decode(rec DBRecord) (tag, error) {
	id, err := rec.Int64("id")
	if err != nil {
		return tag{}, err
	}
	name, err := rec.String("name")
	if err != nil {
		return tag{}, err
	}
	note, err := rec.OptionalString("note")
	return tag{ID: id, Name: name, Note: note}, err
}

func (tagCodec) Encode(p tagPatch) map[string]interface{} {
	row := map[string]interface{}{}
	if p.Name != nil {
		row["name"] = *p.Name
	}
	if p.Note != nil {
		row["note"] = *p.Note
	}
	return row
}

func tagRow(id int64, name string) DBRecords {
	return DBRecords{{TableName: "tag", Data: map[string]interface{}{"id": id, "name": name}}}
}

func newTagStore(db *recordingDB) *Store[int64, tag, tagPatch] {
	return NewStore[int64, tag, tagPatch](db, "tag", "id", tagCodec{}, nil)
}

func strPtr(s string) *string { return &s }

func TestStoreCreate(t *testing.T) {
	ctx := context.Background()
	db := &recordingDB{rows: []DBRecords{tagRow(1, "vegan"), tagRow(2, "")}}
	store := newTagStore(db)

	created, err := store.Create(ctx, tagPatch{Note: strPtr("n"), Name: strPtr("vegan")})
	require.NoError(t, err)
	assert.Equal(t, tag{ID: 1, Name: "vegan"}, created)
	assert.Equal(t, `INSERT INTO "tag" ("name", "note") VALUES (?, ?) RETURNING *`, db.last().Query)
	assert.Equal(t, []interface{}{"vegan", "n"}, db.last().Values)

	_, err = store.Create(ctx, tagPatch{})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "tag" DEFAULT VALUES RETURNING *`, db.last().Query)

	_, err = store.Create(ctx, tagPatch{})
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestStoreUpdate(t *testing.T) {
	ctx := context.Background()
	db := &recordingDB{rows: []DBRecords{tagRow(3, "spicy"), tagRow(3, "spicy")}}
	store := newTagStore(db)

	updated, err := store.Update(ctx, 3, tagPatch{Name: strPtr("spicy")})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, `UPDATE "tag" SET "name" = ? WHERE "id" = ? RETURNING *`, db.last().Query)
	assert.Equal(t, []interface{}{"spicy", int64(3)}, db.last().Values)

	// nothing to set reads the row instead
	current, err := store.Update(ctx, 3, tagPatch{})
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, `SELECT * FROM "tag" WHERE "id" = ?`, db.last().Query)

	missing, err := store.Update(ctx, 4, tagPatch{Name: strPtr("x")})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStoreFind(t *testing.T) {
	ctx := context.Background()
	db := &recordingDB{}
	store := newTagStore(db)

	all, err := store.FindBy(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Equal(t, `SELECT * FROM "tag"`, db.last().Query)

	_, err = store.FindBy(ctx, Where("name", "vegan").And("note", "n"))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "tag" WHERE ("name" = ? AND "note" = ?)`, db.last().Query)
	assert.Equal(t, []interface{}{"vegan", "n"}, db.last().Values)

	_, err = store.FindOneBy(ctx, Filter{})
	assert.ErrorIs(t, err, ErrUnconstrainedQuery)

	_, err = store.FindBy(ctx, Where("name; DROP TABLE tag", "x"))
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	db.rows = []DBRecords{tagRow(1, "a")}
	one, err := store.FindOneBy(ctx, Where("name", "a"))
	require.NoError(t, err)
	assert.Equal(t, "a", one.Name)
	assert.Equal(t, `SELECT * FROM "tag" WHERE "name" = ? LIMIT 1`, db.last().Query)
}

func TestStoreQueryOne(t *testing.T) {
	ctx := context.Background()
	two := append(tagRow(1, "a"), tagRow(2, "b")...)
	db := &recordingDB{rows: []DBRecords{two}}
	store := newTagStore(db)

	_, err := store.FindByID(ctx, 1)
	assert.ErrorIs(t, err, ErrSQLMoreThanOneRow)

	db.rows = []DBRecords{{{TableName: "tag", Data: map[string]interface{}{"id": int64(1)}}}}
	_, err = store.FindByID(ctx, 1)
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.True(t, IsORMError(err))
}

func TestStoreDeleteAndCount(t *testing.T) {
	ctx := context.Background()
	db := &recordingDB{rowsAffect: 1}
	store := newTagStore(db)

	deleted, err := store.Delete(ctx, 9)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, `DELETE FROM "tag" WHERE "id" = ?`, db.last().Query)

	db.rows = []DBRecords{{{Data: map[string]interface{}{"count": "12"}}}}
	n, err := store.Count(ctx, Where("name", "x"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	exists, err := store.Exists(ctx, 9)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNewStorePanicsOnBadIdentifier(t *testing.T) {
	assert.Panics(t, func() {
		NewStore[int64, tag, tagPatch](&recordingDB{}, "tag name", "id", tagCodec{}, nil)
	})
	assert.Panics(t, func() {
		NewStore[int64, tag, tagPatch](&recordingDB{}, "tag", "id;", tagCodec{}, nil)
	})
}

func TestOrmErrorUnwrap(t *testing.T) {
	err := WrapInsertError(errors.New("boom"), "tag")
	ctx, ok := GetErrorContext(err)
	require.True(t, ok)
	assert.Equal(t, "INSERT", ctx.Operation)
	assert.Equal(t, "tag", ctx.Table)
	assert.Contains(t, FormatError(err), "Table: tag")
	assert.False(t, IsConflict(err))
}
