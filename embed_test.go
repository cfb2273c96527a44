package dynform_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/dynform"
	"gorm.io/dynform/form"
	"gorm.io/dynform/logger"
	"gorm.io/dynform/schema"
	. "gorm.io/dynform/utils/tests"
)

// recordingLogger keeps the traced operations and warnings of a manager
type recordingLogger struct {
	mu    sync.Mutex
	ops   []string
	warns []string
}

func (l *recordingLogger) LogMode(logger.LogLevel) logger.Interface { return l }

func (l *recordingLogger) Info(context.Context, string, ...interface{}) {}

func (l *recordingLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(msg, data...))
}

func (l *recordingLogger) Error(context.Context, string, ...interface{}) {}

func (l *recordingLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	op, _ := fc()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *recordingLogger) count(prefix string) (n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, op := range l.ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return
}

func newUserForm(t *testing.T, m *dynform.Manager, user *User) *form.Form {
	t.Helper()
	f, err := m.Registry().Build("UserForm", user)
	require.NoError(t, err)
	return f
}

func TestEmbedRelation(t *testing.T) {
	db := OpenDB(t)
	m := NewManager(db, nil)

	user := GetUser("embed", 3, 0)
	require.NoError(t, db.Save(user).Error)

	f := newUserForm(t, m, user)
	require.NoError(t, m.EmbedRelation(f, "Pets"))

	assert.Equal(t, []uint{1, 2, 3}, ChildIDs(t, f, "pets"))

	relations := dynform.Relations(f)
	require.Equal(t, 1, relations.Len())
	assert.Equal(t, []string{"pets"}, relations.Fields())

	cfg, ok := relations.Get("pets")
	require.True(t, ok)
	assert.Equal(t, "PetForm", cfg.FormType)
	assert.Equal(t, "id", cfg.Identifier)
	assert.Equal(t, "Pets", cfg.Relation.Name)

	container, err := f.EmbeddedForm("pets")
	require.NoError(t, err)
	for i, child := range container.EmbeddedForms() {
		assert.Same(t, user.Pets[i], child.Object())
		assert.Equal(t, fmt.Sprint(i), child.Name())
	}

	assert.Len(t, db.Listeners(user), 1)
	assert.True(t, f.HasFilter("dynform:reconcile"))
}

func TestEmbedRelationAlias(t *testing.T) {
	db := OpenDB(t)
	m := NewManager(db, nil)

	user := GetUser("alias", 1, 0)
	require.NoError(t, db.Save(user).Error)

	f := newUserForm(t, m, user)
	require.NoError(t, m.EmbedRelation(f, "  Pets AS animals "))

	assert.Equal(t, []string{"animals"}, dynform.Relations(f).Fields())
	assert.Equal(t, []uint{1}, ChildIDs(t, f, "animals"))

	require.NoError(t, f.Bind(context.Background(), form.Values{
		"name":    "alias",
		"animals": []interface{}{form.Values{"id": "1", "name": "alias_renamed"}},
	}))
	assert.True(t, f.IsValid(), "got errors %v", f.Errors())
	assert.Equal(t, "alias_renamed", user.Pets[0].Name)
}

func TestEmbedRelationOptions(t *testing.T) {
	db := OpenDB(t)
	m := NewManager(db, nil)

	user := GetUser("options", 1, 0)
	require.NoError(t, db.Save(user).Error)

	f := newUserForm(t, m, user)
	require.NoError(t, m.EmbedRelation(f, "Pets as pets", dynform.WithFormType("PetForm"), dynform.WithFormArgs(form.WithOption("mode", "edit"))))

	container, err := f.EmbeddedForm("pets")
	require.NoError(t, err)
	mode, ok := container.EmbeddedForms()[0].Option("mode")
	assert.True(t, ok)
	assert.Equal(t, "edit", mode)
}

func TestEmbedRelationConfigurationErrors(t *testing.T) {
	db := OpenDB(t)
	m := NewManager(db, nil)

	user := GetUser("errors", 1, 1)
	require.NoError(t, db.Save(user).Error)

	f := newUserForm(t, m, user)
	require.NoError(t, m.EmbedRelation(f, "Pets"))
	before := dynform.Relations(f)

	tests := []struct {
		name string
		spec string
		opts []dynform.EmbedOption
		err  error
	}{
		{"has one", "Profile", nil, dynform.ErrNotToMany},
		{"belongs to", "Company", nil, dynform.ErrNotToMany},
		{"unknown relation", "Friends", nil, dynform.ErrUnknownRelation},
		{"invalid spec", "Pets as", nil, dynform.ErrConfiguration},
		{"unknown form type", "Accounts", []dynform.EmbedOption{dynform.WithFormType("MissingForm")}, dynform.ErrUnknownFormType},
		{"missing identifier", "Pets as anonymous_pets", []dynform.EmbedOption{dynform.WithFormType("AnonymousPetForm")}, dynform.ErrMissingIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.EmbedRelation(f, tt.spec, tt.opts...)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expects %v, got %v", tt.err, err)
			}

			assert.True(t, dynform.IsConfigurationError(err))
			assert.Same(t, before, dynform.Relations(f), "a failed embedding leaves the configuration unchanged")
			assert.False(t, f.Has("accounts"))
			assert.False(t, f.Has("anonymous_pets"))
		})
	}

	assert.Len(t, db.Listeners(user), 1)
}

func TestEmbedRelationUnsupported(t *testing.T) {
	db := OpenDB(t)
	m := NewManager(db, nil)

	f, err := form.New("shelter", &Shelter{Name: "values"})
	require.NoError(t, err)

	if err := m.EmbedRelation(f, "Animals"); !errors.Is(err, dynform.ErrUnsupportedCollection) {
		t.Errorf("slices of values can not be embedded, got %v", err)
	}
	assert.Nil(t, dynform.Relations(f))

	if err := m.EmbedRelation(form.NewCollection("container", nil), "Pets"); !errors.Is(err, dynform.ErrConfiguration) {
		t.Errorf("forms without object can not embed relations, got %v", err)
	}
}

type Category struct {
	ID         uint
	CategoryID *uint
	Name       string
	Children   []*Category
}

func TestEmbedSelfReferencingRelation(t *testing.T) {
	db := OpenDB(t)
	m := NewManager(db, nil)

	m.Registry().Register("CategoryForm", func(object interface{}, args ...interface{}) (*form.Form, error) {
		f, err := form.New("category", object, form.WithFields("id", "name"))
		if err != nil {
			return nil, err
		}
		return f, m.EmbedRelation(f, "Children")
	})

	root := &Category{Name: "root", Children: []*Category{{Name: "leaf"}}}
	require.NoError(t, db.Save(root).Error)

	f, err := m.Registry().Build("CategoryForm", root)
	require.NoError(t, err)

	container, err := f.EmbeddedForm("children")
	require.NoError(t, err)
	require.Len(t, container.EmbeddedForms(), 1)
	assert.Same(t, root.Children[0], container.EmbeddedForms()[0].Object())

	cfg, _ := dynform.Relations(f).Get("children")
	assert.Equal(t, "id", cfg.Identifier)
}

func TestEmbedField(t *testing.T) {
	db := OpenDB(t)
	m := NewManager(db, nil)

	user := GetUser("embed_field", 3, 0)
	require.NoError(t, db.Save(user).Error)

	f := newUserForm(t, m, user)
	require.NoError(t, m.EmbedRelation(f, "Pets"))

	require.NoError(t, m.EmbedField(f, "pets", []interface{}{user.Pets[2], form.Values{"id": 1}}))
	assert.Equal(t, []uint{3, 1}, ChildIDs(t, f, "pets"))

	if err := m.EmbedField(f, "toys", nil); !dynform.IsConfigurationError(err) {
		t.Errorf("should returns configuration error for an unconfigured field, got %v", err)
	}

	if err := m.EmbedField(f, "pets", []interface{}{"garbage"}); !errors.Is(err, dynform.ErrInvalidInput) {
		t.Errorf("should returns ErrInvalidInput, got %v", err)
	}
}

func TestDisconnect(t *testing.T) {
	db := OpenDB(t)
	m := NewManager(db, nil)

	user := GetUser("disconnect", 2, 0)
	require.NoError(t, db.Save(user).Error)

	f := newUserForm(t, m, user)
	require.NoError(t, m.EmbedRelation(f, "Pets"))

	other := newUserForm(t, m, user)
	assert.False(t, m.Disconnect(other), "the listener belongs to the first form")
	assert.Len(t, db.Listeners(user), 1)

	assert.True(t, m.Disconnect(f))
	assert.False(t, m.Disconnect(f))
	assert.Empty(t, db.Listeners(user))
	assert.False(t, f.HasFilter("dynform:reconcile"))

	// without its filter the form keeps the embedded forms whatever is submitted
	require.NoError(t, f.Bind(context.Background(), form.Values{"name": "disconnect", "pets": []interface{}{}}))
	assert.Equal(t, []uint{1, 2}, ChildIDs(t, f, "pets"))

	require.NoError(t, db.Save(user).Error)
	assert.Len(t, user.Pets, 2)
}

func TestEmbedFieldOnlyPopulatesFormFields(t *testing.T) {
	db := OpenDB(t)
	m := NewManager(db, nil)

	user := GetUser("whitelist", 0, 0)
	require.NoError(t, db.Save(user).Error)

	f := newUserForm(t, m, user)
	require.NoError(t, m.EmbedRelation(f, "Accounts"))

	require.NoError(t, m.EmbedField(f, "accounts", []interface{}{
		form.Values{"number": "whitelisted", "created_at": "2001-02-03 04:05:06", "user_id": 99},
	}))
	require.Len(t, user.Accounts, 1)

	account := user.Accounts[0]
	assert.Equal(t, "whitelisted", account.Number)
	assert.True(t, account.CreatedAt.IsZero(), "created_at is not a field of AccountForm")
	assert.Zero(t, account.UserID)

	require.NoError(t, db.Save(user).Error)
	var saved Account
	require.NoError(t, db.First(&saved, account.ID).Error)
	assert.Equal(t, user.ID, saved.UserID)
	assert.True(t, saved.CreatedAt.After(time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)))
}

func TestEmbedRelationConcurrentProbes(t *testing.T) {
	db := OpenDB(t)
	m := NewManager(db, nil)

	var (
		once    sync.Once
		started = make(chan struct{})
		release = make(chan struct{})
	)

	// the first probe of the form type blocks until the second embedding is done
	m.Registry().Register("SlowAnonymousPetForm", func(object interface{}, args ...interface{}) (*form.Form, error) {
		once.Do(func() {
			close(started)
			<-release
		})
		return form.New("pet", object, form.WithFields("name"))
	})

	first := newUserForm(t, m, GetUser("first_probe", 0, 0))
	second := newUserForm(t, m, GetUser("second_probe", 0, 0))

	errs := make(chan error, 1)
	go func() {
		errs <- m.EmbedRelation(first, "Pets", dynform.WithFormType("SlowAnonymousPetForm"))
	}()

	<-started
	err := m.EmbedRelation(second, "Pets", dynform.WithFormType("SlowAnonymousPetForm"))
	close(release)

	if !errors.Is(err, dynform.ErrMissingIdentifier) {
		t.Errorf("a probe running elsewhere should not skip the identifier check, got %v", err)
	}
	if err := <-errs; !errors.Is(err, dynform.ErrMissingIdentifier) {
		t.Errorf("expects ErrMissingIdentifier, got %v", err)
	}
}

type Label struct {
	ID   uint
	Name string
}

type Article struct {
	ID     uint
	Title  string
	Labels []*Label `gorm:"many2many:article_labels"`
}

func TestEmbedRelationManyToMany(t *testing.T) {
	db := OpenDB(t)
	m := NewManager(db, nil)

	f, err := form.New("article", &Article{Title: "many"}, form.WithFields("id", "title"))
	if err == nil {
		err = m.EmbedRelation(f, "Labels")
	}

	if !errors.Is(err, schema.ErrUnsupportedRelation) {
		t.Errorf("many2many relations can not be embedded, got %v", err)
	}
}
