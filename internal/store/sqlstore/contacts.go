package sqlstore

import (
	"time"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/models"
)

func (s *SQLStore) UpsertContact(owner, contact string, lastMessageAt time.Time) error {
	query := s.rebind(`INSERT INTO contacts (owner_login, contact_login, last_message_at) VALUES (?, ?, ?)
		ON CONFLICT (owner_login, contact_login) DO UPDATE SET last_message_at = excluded.last_message_at`)
	_, err := s.db.Exec(query, owner, contact, lastMessageAt)
	return mapErr(err)
}

func (s *SQLStore) ListContacts(owner string) ([]models.Contact, error) {
	query := s.rebind(`SELECT c.contact_login, COALESCE(u.nickname, ''), c.last_message_at
		FROM contacts c
		LEFT JOIN users u ON u.login = c.contact_login
		WHERE c.owner_login = ?
		ORDER BY c.last_message_at DESC`)
	rows, err := s.db.Query(query, owner)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.Login, &c.Nickname, &c.LastMessageAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (s *SQLStore) RemoveContact(owner, contact string) error {
	query := s.rebind("DELETE FROM contacts WHERE owner_login = ? AND contact_login = ?")
	_, err := s.db.Exec(query, owner, contact)
	return mapErr(err)
}
