package bot

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type BotState struct {
	bot      *Bot
	mu       sync.Mutex
	sessions map[int64]*UserSession
}

func (bs *BotState) newUserSession(userId int64) *UserSession {
	session := newUserSession(userId, bs.bot.tg)

	if bs.bot.store != nil {
		stored, err := bs.bot.store.GetSellerSession(userId)
		if err != nil {
			log.Warn().Err(err).Int64("userId", userId).Msg("failed to get stored seller session")
		} else if stored != nil {
			session.sellerSession = stored.Cookie
			log.Info().Int64("userId", userId).Msg("loaded seller session from database")
			return session
		}
	}

	log.Info().Int64("userId", userId).Msg("new user session created (no seller session)")
	return session
}

func (bs *BotState) getUserSession(userId int64) *UserSession {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if session, ok := bs.sessions[userId]; ok {
		return session
	}
	session := bs.newUserSession(userId)
	session.SetHandler(bs.bot)
	session.StartWorker()
	bs.sessions[userId] = session
	return session
}

func (b *Bot) NewBotState() BotState {
	return BotState{
		bot:      b,
		sessions: make(map[int64]*UserSession),
	}
}

// Shutdown stops all session workers.
func (bs *BotState) Shutdown() {
	bs.mu.Lock()
	sessions := make([]*UserSession, 0, len(bs.sessions))
	for _, session := range bs.sessions {
		sessions = append(sessions, session)
	}
	bs.mu.Unlock()

	for _, session := range sessions {
		session.Stop()
	}
	log.Info().Int("count", len(sessions)).Msg("stopped all session workers")
}
