package orm_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/dynform/orm"
	. "gorm.io/dynform/utils/tests"
)

type countingListener struct {
	name  string
	calls int
	err   error
	fc    func(tx *orm.DB, value interface{}) error
}

func (l *countingListener) Name() string {
	return l.name
}

func (l *countingListener) BeforeSave(tx *orm.DB, value interface{}) error {
	l.calls++
	if l.fc != nil {
		return l.fc(tx, value)
	}
	return l.err
}

func TestListeners(t *testing.T) {
	db := OpenDB(t)
	user := GetUser("listeners", 1, 0)

	first := &countingListener{name: "counter"}
	if !db.AddListener(user, first) {
		t.Fatalf("listener should be added")
	}

	if db.AddListener(user, &countingListener{name: "counter"}) {
		t.Errorf("a listener with the same name should not be added twice")
	}

	other := &countingListener{name: "other"}
	assert.True(t, db.AddListener(user, other))
	assert.Len(t, db.Listeners(user), 2)

	require.NoError(t, db.Save(user).Error)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, other.calls)

	// listeners belong to one object, not to its type
	require.NoError(t, db.Save(GetUser("listeners_other", 0, 0)).Error)
	assert.Equal(t, 1, first.calls)

	assert.True(t, db.RemoveListener(user, "other"))
	assert.False(t, db.RemoveListener(user, "other"))
	require.NoError(t, db.Save(user).Error)
	assert.Equal(t, 2, first.calls)
	assert.Equal(t, 1, other.calls)

	assert.False(t, db.AddListener(nil, first))
	assert.False(t, db.AddListener(User{}, first))
}

func TestListenerError(t *testing.T) {
	db := OpenDB(t)
	user := GetUser("listener_error", 0, 0)
	db.AddListener(user, &countingListener{name: "failing", err: errors.New("listener failed")})

	if err := db.Save(user).Error; err == nil || err.Error() != "listener failed" {
		t.Errorf("listener error should be returned, got %v", err)
	}

	var count int64
	require.NoError(t, db.Model(&User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListenerRunsInsideSaveTransaction(t *testing.T) {
	db := OpenDB(t)
	user := GetUser("listener_tx", 2, 0)
	require.NoError(t, db.Save(user).Error)

	dropped := user.Pets[0]
	db.AddListener(user, &countingListener{name: "delete_first_pet", fc: func(tx *orm.DB, value interface{}) error {
		assert.NotNil(t, tx.Statement.Tx(), "listeners share the save transaction")
		owner := value.(*User)
		owner.Pets = owner.Pets[1:]
		return tx.Delete(dropped).Error
	}})

	require.NoError(t, db.Save(user).Error)

	var pets []Pet
	require.NoError(t, db.Find(&pets).Error)
	require.Len(t, pets, 1)
	assert.Equal(t, user.Pets[0].ID, pets[0].ID)
}

func TestListenerNestedSave(t *testing.T) {
	db := OpenDB(t)
	pet := &Pet{Name: "nested"}
	toy := &Toy{Name: "nested_toy"}
	pet.Toys = []*Toy{toy}

	// a listener saving its owner again must not recurse
	l := &countingListener{name: "resave", fc: func(tx *orm.DB, value interface{}) error {
		return tx.Save(value).Error
	}}
	db.AddListener(pet, l)

	require.NoError(t, db.Save(pet).Error)
	assert.Equal(t, 1, l.calls)
	assert.NotZero(t, toy.PetID)
}

type commitListener struct {
	countingListener
	committed []interface{}
}

func (l *commitListener) AfterCommit(value interface{}) {
	l.committed = append(l.committed, value)
}

func TestCommitListener(t *testing.T) {
	db := OpenDB(t)
	user := GetUser("commit", 1, 0)
	pet := user.Pets[0]

	userListener := &commitListener{countingListener: countingListener{name: "commit"}}
	petListener := &commitListener{countingListener: countingListener{name: "commit"}}
	db.AddListener(user, userListener)
	db.AddListener(pet, petListener)

	require.NoError(t, db.Save(user).Error)
	assert.Equal(t, []interface{}{user}, userListener.committed)
	assert.Equal(t, []interface{}{pet}, petListener.committed, "objects saved through associations are committed with their owner")

	failing := &countingListener{name: "failing", err: errors.New("rejected")}
	db.AddListener(user, failing)
	require.Error(t, db.Save(user).Error)
	assert.Len(t, userListener.committed, 1, "rolled back saves are not committed")

	db.RemoveListener(user, "failing")
	err := db.Transaction(func(tx *orm.DB) error {
		if err := tx.Save(user).Error; err != nil {
			return err
		}
		assert.Len(t, userListener.committed, 1, "nested saves wait for the transaction")
		return tx.Save(pet).Error
	})
	require.NoError(t, err)
	assert.Len(t, userListener.committed, 2)
	assert.Len(t, petListener.committed, 2, "an object saved twice in one transaction is committed once")
}
