package mail

import "gopkg.in/gomail.v2"

type StepEmailData struct {
	Body         string
	SequenceName string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string

	send func(*gomail.Message) error
}
