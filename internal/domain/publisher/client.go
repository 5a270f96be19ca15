package publisher

// Client posts one human-readable notification to the public feed.
// This helps in decoupling the pipeline from the specific transport library.
// Implementations perform no deduplication; which records get published is
// decided solely by the run coordinator.
type Client interface {
	Publish(text string) error
}
