package links

import (
	"context"
	"strings"

	"payhook/internal/platform/models"
)

// Store is the slice of the link repository the service writes through.
type Store interface {
	HashAvailabilityChecker
	ExistsByName(ctx context.Context, companyID int64, name string) (bool, error)
	Create(ctx context.Context, link *models.WebhookLink) error
}

type FlowChecker interface {
	Exists(ctx context.Context, id, companyID int64) (bool, error)
}

type TemplateFinder interface {
	Find(ctx context.Context, id, companyID int64) (*models.EmailTemplate, error)
}

// SenderDefaults fill email settings the operator left out.
type SenderDefaults struct {
	FromName  string
	FromEmail string
}

type Service struct {
	store     Store
	flows     FlowChecker
	templates TemplateFinder
	baseURL   string
	sender    SenderDefaults
}

func NewService(store Store, flows FlowChecker, templates TemplateFinder, baseURL string, sender SenderDefaults) *Service {
	return &Service{
		store:     store,
		flows:     flows,
		templates: templates,
		baseURL:   baseURL,
		sender:    sender,
	}
}

// DefaultEmailSettings is what an email link without settings behaves as.
func DefaultEmailSettings(sender SenderDefaults) models.EmailSettings {
	return models.EmailSettings{
		SendDelay: 0,
		DelayType: models.DelayImmediate,
		FromName:  sender.FromName,
		FromEmail: sender.FromEmail,
		ReplyTo:   sender.FromEmail,
	}
}

func WebhookURL(baseURL, hash string) string {
	return strings.TrimRight(baseURL, "/") + "/webhook/payment/" + hash
}

// CreateLink validates req, checks its target belongs to the same company,
// and stores it under a newly generated hash. The hash is never changed
// afterwards.
func (s *Service) CreateLink(ctx context.Context, req *models.WebhookLink) (*models.WebhookLink, error) {
	if err := ValidateLink(req); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	taken, err := s.store.ExistsByName(ctx, req.CompanyID, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid("name", "a link named %q already exists", name)
	}

	link := &models.WebhookLink{
		CompanyID:   req.CompanyID,
		Name:        name,
		Description: req.Description,
		Platform:    req.Platform,
		ActionType:  req.ActionType,
		Active:      true,
	}

	switch req.ActionType {
	case models.ActionFlow:
		ok, err := s.flows.Exists(ctx, *req.FlowID, req.CompanyID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invalid("flowId", "flow %d not found", *req.FlowID)
		}
		link.FlowID = req.FlowID

	case models.ActionEmail:
		tpl, err := s.templates.Find(ctx, *req.EmailTemplateID, req.CompanyID)
		if err != nil {
			return nil, err
		}
		if tpl == nil {
			return nil, invalid("emailTemplateId", "template %d not found", *req.EmailTemplateID)
		}
		link.EmailTemplateID = req.EmailTemplateID

		settings := DefaultEmailSettings(s.sender)
		if req.EmailSettings != nil {
			settings = *req.EmailSettings
			if settings.FromName == "" {
				settings.FromName = s.sender.FromName
			}
			if settings.FromEmail == "" {
				settings.FromEmail = s.sender.FromEmail
			}
			if settings.ReplyTo == "" {
				settings.ReplyTo = settings.FromEmail
			}
		}
		link.EmailSettings = &settings
	}

	hash, err := GenerateHash(ctx, s.store)
	if err != nil {
		return nil, err
	}
	link.WebhookHash = hash
	link.WebhookURL = WebhookURL(s.baseURL, hash)

	if err := s.store.Create(ctx, link); err != nil {
		return nil, err
	}

	return link, nil
}
