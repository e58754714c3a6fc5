// Package clients contains the external collaborator adapters.
//
// PlexClient implements domain.MediaServer over the Plex HTTP API and
// DiscordClient implements domain.Notifier and domain.CommandRegistry over a
// discordgo session. Both keep their wire formats private and hand the rest
// of the application domain types only.
package clients
