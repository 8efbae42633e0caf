package worker

// the following workers are always enabled
import (
	_ "git.sr.ht/~rjarry/mailthread/worker/imap"
	_ "git.sr.ht/~rjarry/mailthread/worker/maildir"
	_ "git.sr.ht/~rjarry/mailthread/worker/mbox"
)
