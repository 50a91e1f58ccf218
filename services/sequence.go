package services

import (
	"buidl-engine/models"

	"gorm.io/gorm"
)

// nextSequenceValue allocates the next ID from the named counter. Values
// start at 1 and never repeat; once max is crossed the counter refuses with
// ErrIDSpaceExhausted rather than wrapping.
func nextSequenceValue(tx *gorm.DB, name string, max uint64) (uint64, error) {
	var seq models.Sequence
	if err := forUpdate(tx).
		Where(models.Sequence{Name: name}).
		Attrs(models.Sequence{Next: 1}).
		FirstOrCreate(&seq).Error; err != nil {
		return 0, err
	}

	if seq.Next > max {
		return 0, ErrIDSpaceExhausted
	}

	value := seq.Next
	seq.Next++
	if err := tx.Save(&seq).Error; err != nil {
		return 0, err
	}
	return value, nil
}
