package repository

import "github.com/homelistingai/leadflow/internal/entity"

func NewUserCollection(users []entity.User) *Collection[entity.User] {
	return NewCollection(users, func(u entity.User) string { return u.ID })
}

func NewQRCodeCollection(codes []entity.QRCode) *Collection[entity.QRCode] {
	return NewCollection(codes, func(q entity.QRCode) string { return q.ID })
}
