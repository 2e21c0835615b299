// Package message carries direct messages between organizers and exhibitors
// within an expo.
package message

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventsphere/internal/apperr"
	"eventsphere/internal/auth"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
	"eventsphere/internal/notify"
	"eventsphere/internal/utils"
)

type Store interface {
	Create(ctx context.Context, m *models.Message) error
	ListForUser(ctx context.Context, userID string) ([]models.Message, error)
	MarkRead(ctx context.Context, id, recipientID string, at time.Time) (*models.Message, error)
	Delete(ctx context.Context, id, senderID string) error
}

type ExpoLookup interface {
	GetExpo(ctx context.Context, id string) (*models.Expo, error)
}

type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// senderTypes is what each role may send.
var senderTypes = map[string][]string{
	models.RoleExhibitor: {models.MessageExhibitorToOrganizer, models.MessageExhibitorToExhibitor},
	models.RoleOrganizer: {models.MessageOrganizerToExhibitor},
	models.RoleAdmin:     {models.MessageOrganizerToExhibitor},
}

// recipientRoles is who may receive each type.
var recipientRoles = map[string][]string{
	models.MessageOrganizerToExhibitor: {models.RoleExhibitor},
	models.MessageExhibitorToExhibitor: {models.RoleExhibitor},
	models.MessageExhibitorToOrganizer: {models.RoleOrganizer, models.RoleAdmin},
}

type Service struct {
	Messages  Store
	Expos     ExpoLookup
	Users     UserLookup
	Publisher notify.Publisher
	Logger    *logger.Logger

	gate auth.Gate
	now  func() time.Time
}

func NewService(store Store, expos ExpoLookup, users UserLookup, pub notify.Publisher, log *logger.Logger) *Service {
	return &Service{
		Messages:  store,
		Expos:     expos,
		Users:     users,
		Publisher: pub,
		Logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Send stores a message and pushes it to the recipient's channel.
func (s *Service) Send(ctx context.Context, req models.SendMessageRequest, actor *models.Actor) (*models.Message, error) {
	if err := s.gate.Check(actor, []string{models.RoleExhibitor, models.RoleOrganizer, models.RoleAdmin}, ""); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if !contains(senderTypes[actor.Role], req.Type) {
		return nil, apperr.Validationf("Invalid message type for %s", actor.Role)
	}
	if req.RecipientID == actor.ID {
		return nil, apperr.Validationf("Cannot send a message to yourself")
	}
	if _, err := s.Expos.GetExpo(ctx, req.ExpoID); err != nil {
		return nil, err
	}
	recipient, err := s.Users.GetUserByID(ctx, req.RecipientID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.Validationf("Recipient %s does not exist", req.RecipientID)
		}
		return nil, err
	}
	if !contains(recipientRoles[req.Type], recipient.Role) {
		return nil, apperr.Validationf("A %s message cannot go to a %s", req.Type, recipient.Role)
	}

	now := s.now()
	msg := &models.Message{
		ID:          utils.NewID(),
		ExpoID:      req.ExpoID,
		SenderID:    actor.ID,
		RecipientID: req.RecipientID,
		Subject:     strings.TrimSpace(req.Subject),
		Content:     req.Content,
		Type:        req.Type,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.Logger.Info("MESSAGE", fmt.Sprintf("Message %s sent from %s to %s", msg.ID, msg.SenderID, msg.RecipientID))
	s.Publisher.Publish(notify.UserChannel(msg.RecipientID), models.EventMessageNew, msg)
	return msg, nil
}

func (s *Service) List(ctx context.Context, actor *models.Actor) ([]models.Message, error) {
	if err := s.gate.Check(actor, auth.Anyone, ""); err != nil {
		return nil, err
	}
	return s.Messages.ListForUser(ctx, actor.ID)
}

// MarkRead is allowed to the recipient only.
func (s *Service) MarkRead(ctx context.Context, id string, actor *models.Actor) (*models.Message, error) {
	if err := s.gate.Check(actor, auth.Anyone, ""); err != nil {
		return nil, err
	}
	return s.Messages.MarkRead(ctx, id, actor.ID, s.now())
}

// Delete is allowed to the sender only.
func (s *Service) Delete(ctx context.Context, id string, actor *models.Actor) error {
	if err := s.gate.Check(actor, auth.Anyone, ""); err != nil {
		return err
	}
	if err := s.Messages.Delete(ctx, id, actor.ID); err != nil {
		return err
	}
	s.Logger.Info("MESSAGE", fmt.Sprintf("Message %s deleted by %s", id, actor.ID))
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
