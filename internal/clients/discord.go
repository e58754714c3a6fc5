package clients

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"github.com/announcarr/announcarr/internal/domain"
)

// ChannelRouting maps announcement routes to Discord channel IDs. Empty
// entries fall back to the default channel.
type ChannelRouting struct {
	Default        string
	Movies         string
	NewShows       string
	RecentEpisodes string
}

func (r ChannelRouting) channelFor(route domain.Route) string {
	var channelID string
	switch route {
	case domain.RouteMovies:
		channelID = r.Movies
	case domain.RouteNewShows:
		channelID = r.NewShows
	case domain.RouteRecentEpisodes:
		channelID = r.RecentEpisodes
	}
	if channelID == "" {
		channelID = r.Default
	}
	return channelID
}

// DiscordClient implements domain.Notifier and domain.CommandRegistry over a
// discordgo session. Command handlers run on the gateway event goroutine;
// they only touch the orchestrator through its exported methods.
type DiscordClient struct {
	session *discordgo.Session
	routing ChannelRouting
	prefix  string

	mu       sync.RWMutex
	commands map[string]domain.CommandFunc
}

func NewDiscordClient(token string, routing ChannelRouting, prefix string) (*DiscordClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	client := &DiscordClient{
		session:  session,
		routing:  routing,
		prefix:   prefix,
		commands: make(map[string]domain.CommandFunc),
	}

	session.AddHandler(client.onReady)
	session.AddHandler(client.onMessage)

	return client, nil
}

// Open connects the gateway session. Must be called before Send.
func (c *DiscordClient) Open() error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	return nil
}

func (c *DiscordClient) Close() error {
	return c.session.Close()
}

// Connected reports whether the gateway session has completed its handshake.
func (c *DiscordClient) Connected() bool {
	return c.session.State != nil && c.session.State.User != nil
}

// OnCommand registers an administrative command handler.
func (c *DiscordClient) OnCommand(name string, handler domain.CommandFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[name] = handler
}

// Send posts one announcement to the channel selected by its route. Errors
// are returned, never panicked, so the orchestrator can isolate failures.
func (c *DiscordClient) Send(ctx context.Context, route domain.Route, a *domain.Announcement) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	channelID := c.routing.channelFor(route)
	if channelID == "" {
		return fmt.Errorf("%w: no channel configured for route %s", domain.ErrChannelNotFound, route)
	}

	embed := buildEmbed(a)
	if _, err := c.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		return fmt.Errorf("sending message to channel %s: %w", channelID, err)
	}
	return nil
}

func buildEmbed(a *domain.Announcement) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       a.Title,
		Description: a.Body,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if a.ThumbURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: a.ThumbURL}
	}
	if a.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: a.Footer}
	}
	for _, field := range a.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: field.Inline,
		})
	}
	return embed
}

func (c *DiscordClient) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	log.WithFields(log.Fields{
		"user":   s.State.User.Username,
		"guilds": len(s.State.Guilds),
	}).Info("discord session ready")

	if err := s.UpdateWatchStatus(0, "Plex for new media"); err != nil {
		log.WithField("error", err).Warn("failed to set discord presence")
	}
}

func (c *DiscordClient) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || !strings.HasPrefix(m.Content, c.prefix) {
		return
	}

	parts := strings.Fields(strings.TrimPrefix(m.Content, c.prefix))
	if len(parts) == 0 {
		return
	}
	name := strings.ToLower(parts[0])

	c.mu.RLock()
	handler, ok := c.commands[name]
	c.mu.RUnlock()
	if !ok {
		return
	}

	log.WithFields(log.Fields{"command": name, "user": m.Author.Username}).Info("handling command")

	reply, err := handler(context.Background(), parts[1:])
	if err != nil {
		reply = fmt.Sprintf("Command failed: %v", err)
	}
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		log.WithFields(log.Fields{"command": name, "error": err}).Error("failed to send command reply")
	}
}
