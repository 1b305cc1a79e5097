package model

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Timestamps struct {
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

type Account struct {
	ID   int64  `db:"id"`
	Name string `db:"name" audit:"presence"`
}

type User struct {
	Timestamps
	ID        int64    `db:"id"`
	AccountID int64    `db:"account_id" audit:"belongsTo"`
	Email     string   `db:"email" audit:"presence;unique;scope:account_id;caseInsensitive"`
	Active    bool     `db:"active" audit:"in:true,false"`
	Inviter   *User    `db:"-" audit:"belongsTo;fk:invited_by_id;optional"`
	Team      *Account `db:"-" audit:"belongsTo"`
}

type Person struct {
	Name string `db:"full_name" audit:"presence"`
}

func (Person) TableName() string { return "people" }

type BadTag struct {
	Name string `audit:"presense"`
}

func TestEntityOf(t *testing.T) {
	entity, err := EntityOf(&User{})
	require.NoError(t, err)

	assert.Equal(t, "User", entity.Name)
	assert.Equal(t, "users", entity.Table)
	assert.Equal(t, []Rule{
		Presence("email"),
		Uniqueness("email").WithScope("account_id").CaseInsensitive(),
		BooleanInclusion("active"),
	}, entity.Rules)
	assert.Equal(t, []Association{
		{Name: "account", ForeignKey: "account_id"},
		{Name: "inviter", ForeignKey: "invited_by_id", Optional: true},
		{Name: "team"},
	}, entity.Associations)
	assert.True(t, entity.RequiresAssociation("team_id", "_id"))
}

func TestEntityOfTableNameMethod(t *testing.T) {
	entity, err := EntityOf(Person{})
	require.NoError(t, err)

	assert.Equal(t, "people", entity.Table)
	assert.Equal(t, []Rule{Presence("full_name")}, entity.Rules)
}

func TestEntityOfErrors(t *testing.T) {
	_, err := EntityOf(nil)
	assert.Error(t, err)

	_, err = EntityOf(42)
	assert.ErrorContains(t, err, "not a struct")

	_, err = EntityOf(BadTag{})
	assert.ErrorContains(t, err, "unknown key in audit tag: presense")
}

func TestParseAuditTagErrors(t *testing.T) {
	for _, tag := range []string{"scope:a", "caseInsensitive", "fk:a_id", "optional", "unique;scope", "in"} {
		t.Run(tag, func(t *testing.T) {
			_, err := parseAuditTag(tag)
			assert.Error(t, err)
		})
	}
}

func TestReflectSourceSkipsBadModels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	entities, err := NewReflectSource(&Account{}, "not a model", BadTag{}, Person{}).
		WithLogger(logger).
		Entities(context.Background())
	require.NoError(t, err)

	require.Len(t, entities, 2)
	assert.Equal(t, "accounts", entities[0].Table)
	assert.Equal(t, "people", entities[1].Table)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("skipping model")))
}
