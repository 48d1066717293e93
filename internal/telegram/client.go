// Package telegram wraps the MTProto client with the high-level
// operations the downloader and link extractor need: resolving channel
// references, iterating channel history and transferring media files.
package telegram

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/celestix/gotgproto"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"tgmedia/internal/logger"
)

const (
	historyPageSize = 100         // telegram api max per MessagesGetHistory
	transferPart    = 1024 * 1024 // upload.getFile part size, must be 4096-aligned
	maxFloodWaits   = 3           // flood waits tolerated within one transfer
)

// ProgressFunc receives transfer progress. total is 0 when the size is
// unknown (some photos).
type ProgressFunc func(received, total int64)

// Client wraps a gotgproto client and provides high-level telegram operations.
type Client struct {
	proto       *gotgproto.Client
	rateLimiter *RateLimiter
	log         *logger.Logger
}

// NewClient creates a new telegram client wrapper.
func NewClient(proto *gotgproto.Client, limiter *RateLimiter, log *logger.Logger) *Client {
	if limiter == nil {
		limiter = DefaultRateLimiter()
	}
	return &Client{
		proto:       proto,
		rateLimiter: limiter,
		log:         log,
	}
}

// API returns the raw tg.Client for direct API calls.
func (c *Client) API() *tg.Client {
	return c.proto.API()
}

// ResolveChannel resolves a channel reference to channel info. The
// reference is a username (with or without @ prefix, or a t.me link)
// or a numeric channel id.
func (c *Client) ResolveChannel(ctx context.Context, ref string) (*Channel, error) {
	username := strings.TrimPrefix(ref, "@")
	username = strings.TrimPrefix(username, "https://t.me/")
	username = strings.TrimPrefix(username, "t.me/")

	if id, ok := parseChannelID(username); ok {
		return c.resolveByID(ctx, id)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	c.log.Debug().Str("username", username).Msg("telegram: resolving channel username")
	resolved, err := c.API().ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		c.noteFloodWait(err)
		return nil, fmt.Errorf("resolve username %s: %w", username, err)
	}

	for _, chat := range resolved.Chats {
		if ch, ok := chat.(*tg.Channel); ok {
			return &Channel{
				ID:         ch.ID,
				AccessHash: ch.AccessHash,
				Username:   username,
				Title:      ch.Title,
			}, nil
		}
	}
	return nil, fmt.Errorf("not a channel: %s", ref)
}

// resolveByID finds a channel by numeric id by walking the account's
// dialogs. Private channels have no username, so this is the only way
// to recover their access hash.
func (c *Client) resolveByID(ctx context.Context, id int64) (*Channel, error) {
	offset := 0
	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := c.API().MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetID:   offset,
			Limit:      historyPageSize,
			OffsetPeer: &tg.InputPeerEmpty{},
		})
		if err != nil {
			c.noteFloodWait(err)
			return nil, fmt.Errorf("list dialogs: %w", err)
		}

		dialogs, ok := resp.(*tg.MessagesDialogs)
		if !ok {
			break
		}
		for _, chat := range dialogs.Chats {
			ch, ok := chat.(*tg.Channel)
			if !ok {
				continue
			}
			if ch.ID == id {
				return &Channel{
					ID:         ch.ID,
					AccessHash: ch.AccessHash,
					Username:   ch.Username,
					Title:      ch.Title,
				}, nil
			}
		}
		if len(dialogs.Chats) < historyPageSize {
			break
		}
		offset += historyPageSize
	}
	return nil, fmt.Errorf("channel %d not found in dialogs", id)
}

// ChannelInfo fetches extended channel metadata.
func (c *Client) ChannelInfo(ctx context.Context, channel *Channel) (*ChannelInfo, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	full, err := c.API().ChannelsGetFullChannel(ctx, &tg.InputChannel{
		ChannelID:  channel.ID,
		AccessHash: channel.AccessHash,
	})
	if err != nil {
		c.noteFloodWait(err)
		return nil, fmt.Errorf("get full channel: %w", err)
	}

	info := &ChannelInfo{
		ID:       channel.ID,
		Username: channel.Username,
		Title:    channel.Title,
	}
	if chFull, ok := full.FullChat.(*tg.ChannelFull); ok {
		info.About = chFull.About
		info.ParticipantsCount = chFull.ParticipantsCount
		info.AdminsCount = chFull.AdminsCount
	}
	for _, chat := range full.Chats {
		if ch, ok := chat.(*tg.Channel); ok && ch.ID == channel.ID {
			info.Verified = ch.Verified
			info.Scam = ch.Scam
			info.Fake = ch.Fake
		}
	}
	return info, nil
}

// IterMessages walks the channel history from newest to oldest, invoking
// fn for each parsed message until the limit is reached, fn returns an
// error, or the history is exhausted.
func (c *Client) IterMessages(ctx context.Context, channel *Channel, opts IterOptions, fn func(*Message) error) error {
	peer := &tg.InputPeerChannel{
		ChannelID:  channel.ID,
		AccessHash: channel.AccessHash,
	}

	var offsetDate int
	if !opts.OffsetDate.IsZero() {
		offsetDate = int(opts.OffsetDate.Unix())
	}

	visited := 0
	offsetID := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		limit := historyPageSize
		if opts.Limit > 0 && opts.Limit-visited < limit {
			limit = opts.Limit - visited
		}

		var (
			history tg.MessagesMessagesClass
			err     error
		)
		if f := opts.Filter.asMessagesFilter(); f != nil {
			history, err = c.API().MessagesSearch(ctx, &tg.MessagesSearchRequest{
				Peer:     peer,
				Filter:   f,
				OffsetID: offsetID,
				MaxDate:  offsetDate,
				Limit:    limit,
			})
		} else {
			history, err = c.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
				Peer:       peer,
				OffsetID:   offsetID,
				OffsetDate: offsetDate,
				Limit:      limit,
			})
		}
		if err != nil {
			c.noteFloodWait(err)
			return fmt.Errorf("get history: %w", err)
		}

		msgs := rawMessages(history)
		if len(msgs) == 0 {
			return nil
		}

		for _, raw := range msgs {
			offsetID = messageID(raw)
			m := parseMessage(raw, channel.ID)
			if m == nil {
				continue
			}
			visited++
			if err := fn(m); err != nil {
				return err
			}
			if opts.Limit > 0 && visited >= opts.Limit {
				return nil
			}
		}
	}
}

// Download transfers the message's media to path, reporting byte
// progress through onProgress. The caller owns cleanup of a partial
// file when an error is returned.
func (c *Client) Download(ctx context.Context, media *MediaPayload, path string, onProgress ProgressFunc) error {
	location, total, err := downloadLocation(media)
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	var received int64
	floodWaits := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		part, err := c.API().UploadGetFile(ctx, &tg.UploadGetFileRequest{
			Location: location,
			Offset:   received,
			Limit:    transferPart,
		})
		if err != nil {
			if wait, ok := tgerr.AsFloodWait(err); ok && floodWaits < maxFloodWaits {
				floodWaits++
				c.log.Warn().Dur("wait", wait).Str("path", path).Msg("telegram: flood wait during transfer")
				select {
				case <-time.After(wait + 2*time.Second):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return fmt.Errorf("get file part at %d: %w", received, err)
		}

		chunk, ok := part.(*tg.UploadFile)
		if !ok {
			return fmt.Errorf("unexpected upload response %T", part)
		}

		if _, err := out.Write(chunk.Bytes); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		received += int64(len(chunk.Bytes))
		if onProgress != nil {
			onProgress(received, total)
		}

		if len(chunk.Bytes) < transferPart {
			break
		}
		if total > 0 && received >= total {
			break
		}
	}

	return out.Sync()
}

// noteFloodWait feeds FLOOD_WAIT durations into the rate limiter.
func (c *Client) noteFloodWait(err error) {
	if wait, ok := tgerr.AsFloodWait(err); ok {
		c.log.Warn().Dur("wait", wait).Msg("telegram: FLOOD_WAIT, pausing requests")
		c.rateLimiter.SetFloodWait(wait + 2*time.Second)
	}
}

// downloadLocation builds the input file location and expected size for
// a media payload.
func downloadLocation(media *MediaPayload) (tg.InputFileLocationClass, int64, error) {
	switch media.Kind {
	case MediaPhoto:
		if media.Photo == nil {
			return nil, 0, fmt.Errorf("photo payload without photo object")
		}
		size := largestPhotoSize(media.Photo)
		if size == nil {
			return nil, 0, fmt.Errorf("photo %d has no downloadable size", media.Photo.ID)
		}
		return &tg.InputPhotoFileLocation{
			ID:            media.Photo.ID,
			AccessHash:    media.Photo.AccessHash,
			FileReference: media.Photo.FileReference,
			ThumbSize:     size.Type,
		}, int64(size.Size), nil
	case MediaVideo, MediaDocument:
		if media.Document == nil {
			return nil, 0, fmt.Errorf("document payload without document object")
		}
		return media.Document.AsInputDocumentFileLocation(), media.Document.Size, nil
	}
	return nil, 0, fmt.Errorf("unsupported media kind %v", media.Kind)
}
