package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"surveypulse/internal/app"
	"surveypulse/internal/config"
	"surveypulse/internal/logger"
	"surveypulse/internal/model"
	"surveypulse/internal/postback"
	"surveypulse/internal/repository"
	"surveypulse/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(&cfg.App)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout*3)
	defer cancel()

	client, err := repository.Connect(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.Mongo.Database)
	repository.EnsureIndexes(ctx, db, log)
	repos := app.NewRepos(db, cfg)

	userID, err := repos.Users.Create(ctx, &model.User{
		Email:            "creator@example.com",
		Username:         "demo-creator",
		PostbackURL:      "https://creator.example.com/callback?tx={transaction_id}&status={conversion_status}",
		PostbackMethod:   model.MethodGET,
		IncludeResponses: true,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	surveyID, err := repos.Surveys.Create(ctx, &model.Survey{
		OwnerUserID:  userID,
		CreatorEmail: "creator@example.com",
		Title:        "Smartphone Launch Feedback",
		Description:  "Satisfaction with the new device.",
		Questions: []model.Question{
			{ID: "q1", Text: "Are you over 18?", Type: model.QuestionTypeYesNo, Required: true},
			{ID: "q2", Text: "How satisfied are you with the phone overall?", Type: model.QuestionTypeRating, ScaleMin: 1, ScaleMax: 5, Required: true},
			{ID: "q3", Text: "Which model did you purchase?", Type: model.QuestionTypeMultipleChoice, Options: []string{"Standard", "Pro", "Ultra"}},
			{ID: "q4", Text: "What would you improve?", Type: model.QuestionTypeText},
		},
	})
	if err != nil {
		return fmt.Errorf("create survey: %w", err)
	}

	criteriaID, err := repos.Criteria.Create(ctx, &model.CriteriaSet{
		Name:             "smartphone-quality",
		LogicType:        model.LogicThresholdBased,
		PassingThreshold: 60,
		IsActive:         true,
		Criteria: []model.Criterion{
			{ID: "adult", QuestionID: "q1", Condition: model.ConditionEquals, ExpectedValue: "yes", Required: true, Weight: 2},
			{ID: "satisfied", QuestionID: "q2", Condition: model.ConditionGreaterThanOrEqual, ExpectedValue: 3, Weight: 2},
			{ID: "known_model", QuestionID: "q3", Condition: model.ConditionInList, ExpectedValue: []any{"Standard", "Pro", "Ultra"}, Weight: 1},
			{ID: "feedback", QuestionID: "q4", Condition: model.ConditionLengthGreaterThan, ExpectedValue: 10, Weight: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create criteria set: %w", err)
	}

	if _, err := repos.Criteria.Create(ctx, &model.CriteriaSet{
		Name:             cfg.Evaluation.DefaultCriteriaSetName,
		LogicType:        model.LogicAnyRequired,
		IsActive:         true,
		PassingThreshold: 0,
		Criteria: []model.Criterion{
			{ID: "answered", QuestionID: "q1", Condition: model.ConditionLengthGreaterThan, ExpectedValue: 0, Required: true, Weight: 1},
		},
	}); err != nil {
		return fmt.Errorf("create default criteria set: %w", err)
	}

	offerID, err := repos.Offers.Create(ctx, &model.Offer{
		Name:     "Summer Phone Deals",
		BaseURL:  "https://offers.example.com/landing?click={click_id}",
		Payout:   1.25,
		Currency: "USD",
		Status:   model.StatusActive,
	})
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}

	if err := repos.Configs.Upsert(ctx, &model.SurveyConfig{
		SurveyID:                 surveyID,
		PassFailEnabled:          true,
		PepperAdsRedirectEnabled: true,
		CriteriaSetID:            criteriaID,
		PepperAdsOfferID:         offerID,
		FailPageConfig: model.FailPageConfig{
			CustomMessage: "Thanks for your time. You did not qualify for this survey.",
		},
	}); err != nil {
		return fmt.Errorf("create survey config: %w", err)
	}

	partnerID, err := repos.Partners.Create(ctx, &model.LegacyPartner{
		Name:       "Legacy Network",
		URL:        "https://legacy.example.com/pb",
		SendOnPass: true,
		SendOnFail: true,
		PostbackConfig: model.PartnerPostbackConfig{
			PassParams: map[string]string{"goal": "qualified"},
			FailParams: map[string]string{"goal": "screened_out"},
		},
		Status: model.StatusActive,
	})
	if err != nil {
		return fmt.Errorf("create partner: %w", err)
	}

	if _, err := repos.Mappings.Create(ctx, &model.PartnerMapping{
		SurveyID:       surveyID,
		PartnerID:      partnerID,
		PostbackURL:    "https://tracker.example.com/conv?clickid=[CLICK_ID]&amount=[PAYOUT]",
		PostbackMethod: model.MethodGET,
		ParameterMappings: map[string]string{
			postback.FieldClickID:          "clickid",
			postback.FieldPayout:           "amount",
			postback.FieldConversionStatus: "status",
		},
		SendOnCompletion: true,
		SendOnFailure:    false,
		Status:           model.StatusActive,
	}); err != nil {
		return fmt.Errorf("create partner mapping: %w", err)
	}

	share, err := service.NewShareService(repos.Shares, cfg.Server.PublicBaseURL).Create(ctx, service.CreateShareRequest{
		ThirdPartyName: "Acme Ads",
		Parameters: map[string]model.ShareParameter{
			postback.FieldClickID: {Enabled: true, CustomName: "cid"},
		},
	})
	if err != nil {
		return fmt.Errorf("create share: %w", err)
	}

	log.Info("seed complete",
		"user_id", userID,
		"survey_id", surveyID,
		"criteria_set_id", criteriaID,
		"offer_id", offerID,
		"partner_id", partnerID,
		"share_url", share.PostbackURL,
	)
	return nil
}
