package memory

import (
	"fmt"
	"time"

	"github.com/dieuphamit/giapha/internal/models"
)

// setPersonColumn mirrors the single-column UPDATE of the SQL store for the
// editable person columns. Values arrive already coerced to their column
// type by the caller.
func setPersonColumn(p *models.Person, column string, value any) error {
	switch column {
	case "display_name":
		return setString(&p.DisplayName, column, value)
	case "surname":
		return setString(&p.Surname, column, value)
	case "given_name":
		return setString(&p.GivenName, column, value)
	case "nickname":
		return setString(&p.Nickname, column, value)
	case "occupation":
		return setString(&p.Occupation, column, value)
	case "employer":
		return setString(&p.Employer, column, value)
	case "education":
		return setString(&p.Education, column, value)
	case "phone":
		return setString(&p.Phone, column, value)
	case "email":
		return setString(&p.Email, column, value)
	case "zalo":
		return setString(&p.Zalo, column, value)
	case "hometown":
		return setString(&p.Hometown, column, value)
	case "current_address":
		return setString(&p.CurrentAddress, column, value)
	case "biography":
		return setString(&p.Biography, column, value)
	case "notes":
		return setString(&p.Notes, column, value)
	case "is_living":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("column is_living expects bool, got %T", value)
		}
		p.IsLiving = b
		return nil
	case "birth_year":
		return setYear(&p.BirthYear, column, value)
	case "death_year":
		return setYear(&p.DeathYear, column, value)
	case "birth_date":
		return setDate(&p.BirthDate, column, value)
	case "death_date":
		return setDate(&p.DeathDate, column, value)
	default:
		return fmt.Errorf("unknown person column %q", column)
	}
}

func setString(dst *string, column string, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("column %s expects string, got %T", column, value)
	}
	*dst = s
	return nil
}

func setYear(dst **int, column string, value any) error {
	y, ok := value.(int)
	if !ok {
		return fmt.Errorf("column %s expects int, got %T", column, value)
	}
	*dst = &y
	return nil
}

func setDate(dst **time.Time, column string, value any) error {
	t, ok := value.(time.Time)
	if !ok {
		return fmt.Errorf("column %s expects time, got %T", column, value)
	}
	*dst = &t
	return nil
}
