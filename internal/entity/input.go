package entity

import "time"

type (
	// SettingsInput carries the settings a client sent; nil fields keep their current value
	SettingsInput struct {
		AllowAnonymous   *bool   `json:"allowAnonymous,omitempty"`
		CollectEmail     *bool   `json:"collectEmail,omitempty"`
		OneResponsePerIP *bool   `json:"oneResponsePerIp,omitempty"`
		ShowResults      *bool   `json:"showResults,omitempty"`
		CustomThankYou   *string `json:"customThankYou,omitempty"`
	}

	// SurveyInput is the editable part of a survey as sent by a client
	SurveyInput struct {
		Title       string         `json:"title"`
		Description string         `json:"description"`
		Questions   []Question     `json:"questions"`
		ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
		IsPublic    *bool          `json:"is_public,omitempty"`
		Settings    *SettingsInput `json:"settings,omitempty"`
	}

	// SubmissionInput is what a respondent sends
	SubmissionInput struct {
		Answers         []Answer   `json:"answers"`
		RespondentEmail string     `json:"respondentEmail,omitempty"`
		StartedAt       *time.Time `json:"startedAt,omitempty"`
		IPAddress       string     `json:"-"`
	}
)

func (in *SettingsInput) applyTo(s *Settings) {
	if in == nil {
		return
	}
	if in.AllowAnonymous != nil {
		s.AllowAnonymous = *in.AllowAnonymous
	}
	if in.CollectEmail != nil {
		s.CollectEmail = *in.CollectEmail
	}
	if in.OneResponsePerIP != nil {
		s.OneResponsePerIP = *in.OneResponsePerIP
	}
	if in.ShowResults != nil {
		s.ShowResults = *in.ShowResults
	}
	if in.CustomThankYou != nil {
		s.CustomThankYou = *in.CustomThankYou
	}
}

// ApplyTo overwrites the editable fields of s. Title, description, questions
// and expiry are replaced as sent; visibility and settings only where present.
func (in *SurveyInput) ApplyTo(s *Survey) {
	s.Title = in.Title
	s.Description = in.Description
	s.ExpiresAt = in.ExpiresAt

	s.Questions = make([]Question, len(in.Questions))
	copy(s.Questions, in.Questions)

	if in.IsPublic != nil {
		s.IsPublic = *in.IsPublic
	}
	in.Settings.applyTo(&s.Settings)
}
