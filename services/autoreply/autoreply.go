package autoreply

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"msgbridge/clients"
	"msgbridge/core"
	"msgbridge/models"
	"msgbridge/services"
)

// Per-category send delays emulating human response latency.
var categoryDelays = map[models.MessageCategory]time.Duration{
	models.MessageCategoryGreeting:   2000 * time.Millisecond,
	models.MessageCategoryInquiry:    3000 * time.Millisecond,
	models.MessageCategoryComplaint:  4000 * time.Millisecond,
	models.MessageCategoryCompliment: 1500 * time.Millisecond,
	models.MessageCategoryOther:      2500 * time.Millisecond,
}

var categoryKeywords = map[models.MessageCategory][]string{
	models.MessageCategoryGreeting:   {"hello", "hi", "hey", "good morning", "good afternoon", "good evening"},
	models.MessageCategoryInquiry:    {"how much", "price", "cost", "available", "when", "where", "how do", "can i", "do you"},
	models.MessageCategoryComplaint:  {"problem", "issue", "broken", "wrong", "refund", "disappointed", "terrible", "bad"},
	models.MessageCategoryCompliment: {"thank", "thanks", "great", "awesome", "love", "amazing", "excellent"},
}

type AutoReplyService struct {
	rulesService     services.AutoReplyRulesService
	messagesService  services.MessagesService
	accountsService  services.AccountsService
	metaClient       clients.MetaClient
	completionClient clients.CompletionClient
	cipher           *core.TokenCipher
	taskRunner       *core.DelayedTaskRunner
}

func NewAutoReplyService(
	rulesService services.AutoReplyRulesService,
	messagesService services.MessagesService,
	accountsService services.AccountsService,
	metaClient clients.MetaClient,
	completionClient clients.CompletionClient,
	cipher *core.TokenCipher,
	taskRunner *core.DelayedTaskRunner,
) *AutoReplyService {
	return &AutoReplyService{
		rulesService:     rulesService,
		messagesService:  messagesService,
		accountsService:  accountsService,
		metaClient:       metaClient,
		completionClient: completionClient,
		cipher:           cipher,
		taskRunner:       taskRunner,
	}
}

// HandleIncomingMessage decides whether to answer a freshly stored message
// and, when it has reply text, schedules the delayed send.
func (s *AutoReplyService) HandleIncomingMessage(
	ctx context.Context,
	message *models.Message,
	business *models.Business,
) error {
	log.Printf("📋 Starting to evaluate auto-reply for message: %s", message.ID)

	if !business.AutoReplyEnabled {
		log.Printf("📋 Completed successfully - auto-reply disabled for business: %s", business.ID)
		return nil
	}

	replyText, err := s.buildReplyText(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to build reply text: %w", err)
	}
	if replyText == "" {
		log.Printf("📋 Completed successfully - no reply produced for message: %s", message.ID)
		return nil
	}

	category := ClassifyMessage(message.Content)
	delay := categoryDelays[category]
	s.scheduleReply(message, replyText, delay)

	log.Printf("📋 Completed successfully - reply scheduled for message %s in %s (category: %s)",
		message.ID, delay, category)
	return nil
}

// buildReplyText runs the rule scan and falls back to an AI completion.
// Empty string means no reply.
func (s *AutoReplyService) buildReplyText(ctx context.Context, message *models.Message) (string, error) {
	rules, err := s.rulesService.ListActiveRules(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list active rules: %w", err)
	}

	if rule, ok := SelectRule(rules, message.Content); ok {
		log.Printf("📋 Rule %q matched message %s", rule.Name, message.ID)
		return rule.ResponseTemplate, nil
	}

	completion, err := s.completionClient.Complete(ctx, message.Content)
	if err != nil {
		log.Printf("⚠️ AI completion failed for message %s, no reply: %v", message.ID, err)
		return "", nil
	}
	if completion == "" {
		log.Printf("⚠️ AI completion empty for message %s, no reply", message.ID)
	}
	return completion, nil
}

func (s *AutoReplyService) scheduleReply(message *models.Message, replyText string, delay time.Duration) {
	taskID := fmt.Sprintf("autoreply:%s", message.ID)
	s.taskRunner.Schedule(taskID, delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.sendReply(ctx, message, replyText)
	})
}

// sendReply performs the actual send. Failures are logged and never retried;
// is_replied is set only after a successful send.
func (s *AutoReplyService) sendReply(ctx context.Context, message *models.Message, replyText string) {
	maybeAccount, err := s.accountsService.GetAccountByID(ctx, message.AccountID)
	if err != nil {
		log.Printf("❌ Failed to load account for reply to message %s: %v", message.ID, err)
		return
	}
	account, ok := maybeAccount.Get()
	if !ok {
		log.Printf("❌ Account %s not found for reply to message %s", message.AccountID, message.ID)
		return
	}

	accessToken, err := s.cipher.Decrypt(account.AccessToken)
	if err != nil {
		log.Printf("❌ Failed to decrypt access token for reply to message %s: %v", message.ID, err)
		return
	}

	if err := s.metaClient.SendMessage(ctx, accessToken, message.SenderID, replyText); err != nil {
		log.Printf("❌ Failed to send auto-reply for message %s: %v", message.ID, err)
		return
	}

	if err := s.messagesService.MarkMessageReplied(ctx, message.ID); err != nil {
		log.Printf("❌ Failed to mark message %s replied: %v", message.ID, err)
		return
	}

	log.Printf("✅ Auto-reply sent for message %s", message.ID)
}

// SelectRule scans active rules in order and returns the one with the
// highest qualifying confidence. Scoring is binary: any keyword hit scores
// 1.0, otherwise 0. The strict > comparison keeps first-scanned-wins order
// on ties.
func SelectRule(rules []*models.AutoReplyRule, content string) (*models.AutoReplyRule, bool) {
	var best *models.AutoReplyRule
	bestScore := 0.0

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		score := RuleConfidence(rule, content)
		if score < rule.ConfidenceThreshold {
			continue
		}
		if score > bestScore {
			best = rule
			bestScore = score
		}
	}
	return best, best != nil
}

// RuleConfidence returns 1.0 when any of the rule's trigger keywords occurs
// in the content (case-insensitive substring), 0 otherwise.
func RuleConfidence(rule *models.AutoReplyRule, content string) float64 {
	lowered := strings.ToLower(content)
	for _, keyword := range rule.TriggerKeywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return 1.0
		}
	}
	return 0.0
}

// ClassifyMessage buckets the content into a response-delay category using
// independent keyword heuristics. First category with a hit wins; no hit
// means "other".
func ClassifyMessage(content string) models.MessageCategory {
	lowered := strings.ToLower(content)
	ordered := []models.MessageCategory{
		models.MessageCategoryGreeting,
		models.MessageCategoryInquiry,
		models.MessageCategoryComplaint,
		models.MessageCategoryCompliment,
	}
	for _, category := range ordered {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(lowered, keyword) {
				return category
			}
		}
	}
	return models.MessageCategoryOther
}
