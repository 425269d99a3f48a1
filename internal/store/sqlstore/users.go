package sqlstore

import (
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/models"
)

const userColumns = "id, login, email, password_hash, nickname, COALESCE(public_key, ''), COALESCE(private_key, ''), level, is_banned"

func (s *SQLStore) CreateUser(user *models.User) error {
	query := s.rebind("INSERT INTO users (login, email, password_hash, nickname, public_key, private_key, level, is_banned) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	_, err := s.db.Exec(query, user.Login, user.Email, user.PasswordHash, user.Nickname, user.PublicKey, user.PrivateKey, user.Level, user.IsBanned)
	return mapErr(err)
}

func (s *SQLStore) GetUserByLogin(login string) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE login = ?")
	return s.scanUser(s.db.QueryRow(query, login))
}

func (s *SQLStore) GetUserByEmail(email string) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE email = ?")
	return s.scanUser(s.db.QueryRow(query, email))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Login, &user.Email, &user.PasswordHash, &user.Nickname, &user.PublicKey, &user.PrivateKey, &user.Level, &user.IsBanned)
	if err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (s *SQLStore) SearchUsers(queryStr string) ([]models.User, error) {
	query := s.rebind("SELECT id, login, email, nickname, COALESCE(public_key, '') FROM users WHERE (login LIKE ? OR nickname LIKE ?) AND is_banned = FALSE LIMIT 10")
	pattern := "%" + queryStr + "%"
	rows, err := s.db.Query(query, pattern, pattern)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Login, &user.Email, &user.Nickname, &user.PublicKey); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *SQLStore) UpdateNickname(login, nickname string) error {
	query := s.rebind("UPDATE users SET nickname = ? WHERE login = ?")
	result, err := s.db.Exec(query, nickname, login)
	if err != nil {
		return mapErr(err)
	}
	return requireAffected(result)
}

func (s *SQLStore) SetBanned(login string, banned bool) error {
	query := s.rebind("UPDATE users SET is_banned = ? WHERE login = ?")
	result, err := s.db.Exec(query, banned, login)
	if err != nil {
		return mapErr(err)
	}
	return requireAffected(result)
}
