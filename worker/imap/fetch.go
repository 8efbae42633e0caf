package imap

import (
	"fmt"
	"strconv"

	"github.com/emersion/go-imap"

	"git.sr.ht/~rjarry/mailthread/lib/hdrcache"
	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/lib/rfc822"
	"git.sr.ht/~rjarry/mailthread/models"
)

// headerSection requests the threading fields without setting \Seen.
func headerSection() *imap.BodySectionName {
	return &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{
			Specifier: imap.HeaderSpecifier,
			Fields:    rfc822.ThreadingFields,
		},
		Peek: true,
	}
}

// source reads headers of one mailbox, keyed by UID.
type source struct {
	s           *session
	mailbox     string
	uidValidity uint32
	cache       *hdrcache.Cache
	// cache namespace, the UID validity is part of it
	cacheName string
}

func cacheName(name string, uidValidity uint32) string {
	return fmt.Sprintf("%s/%d", name, uidValidity)
}

// examine selects the mailbox and checks that UIDs are still valid.
func (src *source) examine() error {
	status, err := src.s.examine(src.mailbox)
	if err != nil {
		return err
	}
	if status.UidValidity != src.uidValidity {
		return fmt.Errorf("%s: UIDVALIDITY changed from %d to %d",
			src.mailbox, src.uidValidity, status.UidValidity)
	}
	return nil
}

func (src *source) ReadHeader(key string) (*models.Envelope, error) {
	envs, err := src.ReadHeaders([]string{key})
	if err != nil {
		return nil, err
	}
	env, ok := envs[key]
	if !ok {
		return nil, fmt.Errorf("%s: no message with UID %s", src.mailbox, key)
	}
	return env, nil
}

func (src *source) ReadHeaders(keys []string) (map[string]*models.Envelope, error) {
	if err := src.examine(); err != nil {
		return nil, err
	}
	uids := make([]uint32, 0, len(keys))
	for _, key := range keys {
		uid, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid UID %q: %w", key, err)
		}
		uids = append(uids, uint32(uid))
	}

	section := headerSection()
	items := []imap.FetchItem{
		imap.FetchUid,
		imap.FetchInternalDate,
		imap.FetchRFC822Size,
		section.FetchItem(),
	}
	envs := make(map[string]*models.Envelope, len(keys))
	batch := src.s.cfg.fetchBatch
	for len(uids) > 0 {
		chunk := uids[:min(batch, len(uids))]
		uids = uids[len(chunk):]
		set := new(imap.SeqSet)
		set.AddNum(chunk...)
		err := src.s.fetch(set, items, func(msg *imap.Message) error {
			key := strconv.FormatUint(uint64(msg.Uid), 10)
			r := msg.GetBody(section)
			if r == nil {
				log.Warnf("%s: UID %s: no header returned", src.mailbox, key)
				return nil
			}
			env, err := rfc822.ReadEnvelope(r)
			if err != nil {
				log.Warnf("%s: UID %s: %v", src.mailbox, key, err)
				return nil
			}
			envs[key] = env
			err = src.cache.Put(src.cacheName, &models.MessageInfo{
				Key:          key,
				Envelope:     env,
				InternalDate: msg.InternalDate,
				Size:         msg.Size,
			})
			if err != nil {
				log.Errorf("%v", err)
			}
			return nil
		})
		if err != nil {
			return envs, err
		}
	}
	log.Tracef("%s: fetched %d/%d headers", src.mailbox, len(envs), len(keys))
	return envs, nil
}

// list returns every message of the mailbox with its internal date and
// size. Envelopes are taken from the header cache when present.
func (src *source) list() ([]*models.MessageInfo, error) {
	if err := src.examine(); err != nil {
		return nil, err
	}
	if src.s.selected.Messages == 0 {
		return nil, nil
	}
	set := new(imap.SeqSet)
	set.AddRange(1, 0)
	items := []imap.FetchItem{imap.FetchUid, imap.FetchInternalDate, imap.FetchRFC822Size}
	var infos []*models.MessageInfo
	err := src.s.fetch(set, items, func(msg *imap.Message) error {
		key := strconv.FormatUint(uint64(msg.Uid), 10)
		mi := &models.MessageInfo{
			Key:          key,
			InternalDate: msg.InternalDate,
			Size:         msg.Size,
		}
		if cached, ok := src.cache.Get(src.cacheName, key); ok {
			mi.Envelope = cached.Envelope
		}
		infos = append(infos, mi)
		return nil
	})
	return infos, err
}
