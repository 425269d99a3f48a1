package sqlstore

import (
	"database/sql"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/models"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/store"
)

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLStore) SaveMessage(msg *models.Message) error {
	query := s.rebind(`INSERT INTO messages (id, from_login, to_login, content, ciphertext, wrapped_key, iv, kind, file_name, file_type, file_size, created_at, is_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.Exec(query,
		msg.ID, msg.FromLogin, msg.ToLogin, msg.Content,
		msg.Ciphertext, msg.WrappedKey, msg.IV,
		string(msg.Kind), msg.FileName, msg.FileType, msg.FileSize,
		msg.Timestamp, msg.IsRead)
	return mapErr(err)
}

// Conversation returns every message between the two logins, in send order.
func (s *SQLStore) Conversation(loginA, loginB string) ([]models.Message, error) {
	query := s.rebind(`SELECT id, from_login, to_login, content,
			COALESCE(ciphertext, ''), COALESCE(wrapped_key, ''), COALESCE(iv, ''),
			kind, COALESCE(file_name, ''), COALESCE(file_type, ''), COALESCE(file_size, 0),
			created_at, is_read
		FROM messages
		WHERE (from_login = ? AND to_login = ?) OR (from_login = ? AND to_login = ?)
		ORDER BY seq`)
	rows, err := s.db.Query(query, loginA, loginB, loginB, loginA)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var kind string
		if err := rows.Scan(&msg.ID, &msg.FromLogin, &msg.ToLogin, &msg.Content,
			&msg.Ciphertext, &msg.WrappedKey, &msg.IV,
			&kind, &msg.FileName, &msg.FileType, &msg.FileSize,
			&msg.Timestamp, &msg.IsRead); err != nil {
			return nil, err
		}
		msg.Kind = models.MessageKind(kind)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// MarkRead only honors receipts from the message's recipient; anyone else
// gets ErrNotFound, same as an unknown id.
func (s *SQLStore) MarkRead(messageID, reader string) (string, bool, error) {
	query := s.rebind("SELECT from_login FROM messages WHERE id = ? AND to_login = ?")
	var fromLogin string
	if err := s.db.QueryRow(query, messageID, reader).Scan(&fromLogin); err != nil {
		return "", false, mapErr(err)
	}

	query = s.rebind("UPDATE messages SET is_read = TRUE WHERE id = ? AND is_read = FALSE")
	result, err := s.db.Exec(query, messageID)
	if err != nil {
		return "", false, mapErr(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, err
	}
	return fromLogin, rows > 0, nil
}
