package interfaces

// Repository bundles the persistence backends that live outside GitHub
type Repository interface {
	Tracker() TrackerStore
	Locker() IssueLocker
}
