package usecase

import "context"

type HealthUsecase interface {
	Check(ctx context.Context) map[string]string
}

type healthUsecase struct {
	mailTransport string
}

// NewHealthUsecase reports the selected mail transport; an empty name means
// no transport is wired and the contact endpoint answers 503
func NewHealthUsecase(mailTransport string) HealthUsecase {
	return &healthUsecase{mailTransport: mailTransport}
}

func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	status := map[string]string{
		"status":         "ok",
		"mail_transport": u.mailTransport,
	}
	if u.mailTransport == "" {
		status["status"] = "degraded"
		status["mail_transport"] = "unconfigured"
	}
	return status
}
