package orm

type BeforeSaveInterface interface {
	BeforeSave(*DB) error
}

type AfterSaveInterface interface {
	AfterSave(*DB) error
}

type BeforeDeleteInterface interface {
	BeforeDelete(*DB) error
}

type AfterDeleteInterface interface {
	AfterDelete(*DB) error
}

type AfterFindInterface interface {
	AfterFind(*DB) error
}

// Listener is notified before one specific object is saved
type Listener interface {
	// Name identifies the listener, one object holds at most one listener per name
	Name() string
	BeforeSave(tx *DB, value interface{}) error
}

// CommitListener is a Listener told when the transaction that saved its object commits
type CommitListener interface {
	Listener
	AfterCommit(value interface{})
}
