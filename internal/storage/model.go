package storage

import "time"

type dbSession struct {
	ID        string
	Token     string
	CreatedAt time.Time
	ExpireAt  time.Time
	UserID    string
}

type dbUser struct {
	ID             string
	UserName       string
	FullName       string
	PasswordHashed string
	Email          string
	Phone          string
	Bio            string
	CreatedAt      time.Time
}
