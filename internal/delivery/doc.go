// Package delivery hands a finished archive to its recipient.
//
// SMTPSender mails the archive as an attachment through go-mail.
// DirectorySender copies it into a local directory and backs the CLI's
// --output mode, where no mail server is involved.
package delivery
