package mysql

const upsertShortlistSQL = `
INSERT INTO shortlists
  (owner_id, hotels, hotel_count)
VALUES
  (?, ?, ?)
ON DUPLICATE KEY UPDATE
  hotels      = VALUES(hotels),
  hotel_count = VALUES(hotel_count),
  updated_at  = CURRENT_TIMESTAMP
`

const getShortlistSQL = `
SELECT hotels
FROM shortlists
WHERE owner_id = ?
`

const deleteShortlistSQL = `
DELETE FROM shortlists
WHERE owner_id = ?
`
