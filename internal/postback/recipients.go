package postback

import (
	"context"
	"log/slog"

	"surveypulse/internal/model"
)

// RecipientKind tags where a delivery target came from.
type RecipientKind string

const (
	KindCreator       RecipientKind = "creator"
	KindLegacyPartner RecipientKind = "legacy_partner"
	KindMappedPartner RecipientKind = "mapped_partner"
)

// RecipientTarget is the uniform projection of every recipient kind.
type RecipientTarget struct {
	Kind        RecipientKind
	Name        string
	Method      model.PostbackMethod
	Template    string
	Mapping     map[string]string // standard field -> outgoing name
	ExtraParams map[string]string // static pairs appended after rendering
}

// SurveyStore reads surveys. Not-found is (nil, nil).
type SurveyStore interface {
	GetByID(ctx context.Context, id string) (*model.Survey, error)
}

// UserStore reads creator accounts. Not-found is (nil, nil).
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// PartnerStore reads legacy partners.
type PartnerStore interface {
	ListActive(ctx context.Context) ([]model.LegacyPartner, error)
	GetByID(ctx context.Context, id string) (*model.LegacyPartner, error)
}

// MappingStore reads per-survey partner mappings.
type MappingStore interface {
	ListActiveBySurvey(ctx context.Context, surveyID string) ([]model.PartnerMapping, error)
}

type recipientGatherer struct {
	surveys  SurveyStore
	users    UserStore
	partners PartnerStore
	mappings MappingStore
	logger   *slog.Logger
}

// gather collects every eligible target. Each kind is looked up on its own;
// a store failure for one kind is logged and does not hide the others.
func (g *recipientGatherer) gather(ctx context.Context, surveyID string, passed bool) []RecipientTarget {
	var targets []RecipientTarget

	if t, ok := g.creator(ctx, surveyID); ok {
		targets = append(targets, t)
	}
	targets = append(targets, g.legacyPartners(ctx, passed)...)
	targets = append(targets, g.mappedPartners(ctx, surveyID, passed)...)

	return targets
}

func (g *recipientGatherer) creator(ctx context.Context, surveyID string) (RecipientTarget, bool) {
	survey, err := g.surveys.GetByID(ctx, surveyID)
	if err != nil {
		g.logger.Error("survey lookup failed", "survey_id", surveyID, "error", err)
		return RecipientTarget{}, false
	}
	if survey == nil {
		g.logger.Info("survey not found, skipping creator postback", "survey_id", surveyID)
		return RecipientTarget{}, false
	}

	var user *model.User
	if survey.OwnerUserID != "" {
		user, err = g.users.GetByID(ctx, survey.OwnerUserID)
		if err != nil {
			g.logger.Error("creator lookup failed", "survey_id", surveyID, "user_id", survey.OwnerUserID, "error", err)
		}
	}
	if user == nil && survey.CreatorEmail != "" {
		user, err = g.users.GetByEmail(ctx, survey.CreatorEmail)
		if err != nil {
			g.logger.Error("creator lookup by email failed", "survey_id", surveyID, "error", err)
		}
	}
	if user == nil || user.PostbackURL == "" {
		g.logger.Debug("creator has no postback url", "survey_id", surveyID)
		return RecipientTarget{}, false
	}

	mapping := make(map[string]string, len(user.ParameterMappings)+len(ResponseFields))
	if len(user.ParameterMappings) == 0 {
		mapping = DefaultMapping()
	}
	for field, custom := range user.ParameterMappings {
		mapping[field] = custom
	}
	if user.IncludeResponses {
		for _, f := range ResponseFields {
			if _, ok := mapping[f]; !ok {
				mapping[f] = f
			}
		}
	}

	name := user.Username
	if name == "" {
		name = user.Email
	}
	return RecipientTarget{
		Kind:     KindCreator,
		Name:     name,
		Method:   user.PostbackMethod.Normalize(),
		Template: user.PostbackURL,
		Mapping:  mapping,
	}, true
}

func (g *recipientGatherer) legacyPartners(ctx context.Context, passed bool) []RecipientTarget {
	partners, err := g.partners.ListActive(ctx)
	if err != nil {
		g.logger.Error("legacy partner lookup failed", "error", err)
		return nil
	}

	var targets []RecipientTarget
	for _, p := range partners {
		if p.Status != model.StatusActive {
			continue
		}
		if passed && !p.SendOnPass || !passed && !p.SendOnFail {
			continue
		}

		extra := map[string]string{}
		template := p.FailPostbackURL
		static := p.PostbackConfig.FailParams
		if passed {
			template = p.PassPostbackURL
			static = p.PostbackConfig.PassParams
		}
		if template == "" {
			if p.URL == "" {
				g.logger.Debug("legacy partner has no url", "partner", p.Name)
				continue
			}
			template = p.URL
			extra["status"], extra["result"] = verdictParams(passed)
		}
		for k, v := range static {
			extra[k] = v
		}

		targets = append(targets, RecipientTarget{
			Kind:        KindLegacyPartner,
			Name:        p.Name,
			Method:      model.MethodGET,
			Template:    template,
			ExtraParams: extra,
		})
	}
	return targets
}

func (g *recipientGatherer) mappedPartners(ctx context.Context, surveyID string, passed bool) []RecipientTarget {
	mappings, err := g.mappings.ListActiveBySurvey(ctx, surveyID)
	if err != nil {
		g.logger.Error("partner mapping lookup failed", "survey_id", surveyID, "error", err)
		return nil
	}

	var targets []RecipientTarget
	for _, m := range mappings {
		if m.Status != model.StatusActive || m.PostbackURL == "" {
			continue
		}
		if !m.SendOnCompletion && (passed || !m.SendOnFailure) {
			continue
		}

		name := m.PartnerID
		if p, err := g.partners.GetByID(ctx, m.PartnerID); err == nil && p != nil {
			name = p.Name
		}

		targets = append(targets, RecipientTarget{
			Kind:     KindMappedPartner,
			Name:     name,
			Method:   m.PostbackMethod.Normalize(),
			Template: m.PostbackURL,
			Mapping:  m.ParameterMappings,
		})
	}
	return targets
}

func verdictParams(passed bool) (status, result string) {
	if passed {
		return "pass", "passed"
	}
	return "fail", "failed"
}
