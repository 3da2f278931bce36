package console

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"admin-console/internal/model"
)

// splitArgs splits a command line on spaces. Single or double quotes group
// words; there are no escapes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inWord  bool
	)

	for _, r := range line {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}

// parseFields reads key=value arguments.
func parseFields(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		fields[key] = value
	}
	return fields, nil
}

func checkKeys(fields map[string]string, allowed ...string) error {
	for key := range fields {
		if !slices.Contains(allowed, key) {
			slices.Sort(allowed)
			return fmt.Errorf("unknown field %q (allowed: %s)", key, strings.Join(allowed, ", "))
		}
	}
	return nil
}

func parseRole(raw string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin", "1":
		return model.RoleAdmin, nil
	case "user", "2":
		return model.RoleUser, nil
	default:
		return 0, fmt.Errorf("role must be admin or user, got %q", raw)
	}
}

func parseStatus(raw string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active", "1":
		return model.StatusActive, nil
	case "disabled", "0":
		return model.StatusDisabled, nil
	default:
		return 0, fmt.Errorf("status must be active or disabled, got %q", raw)
	}
}

func parseUserCreate(fields map[string]string) (model.UserCreate, error) {
	if err := checkKeys(fields, "email", "password", "role", "status"); err != nil {
		return model.UserCreate{}, err
	}
	if fields["email"] == "" || fields["password"] == "" {
		return model.UserCreate{}, fmt.Errorf("email and password are required")
	}

	in := model.UserCreate{
		Email:    fields["email"],
		Password: fields["password"],
		Role:     model.RoleUser,
		Status:   model.StatusActive,
	}
	var err error
	if raw, ok := fields["role"]; ok {
		if in.Role, err = parseRole(raw); err != nil {
			return model.UserCreate{}, err
		}
	}
	if raw, ok := fields["status"]; ok {
		if in.Status, err = parseStatus(raw); err != nil {
			return model.UserCreate{}, err
		}
	}
	return in, nil
}

func parseUserUpdate(fields map[string]string) (model.UserUpdate, error) {
	if err := checkKeys(fields, "email", "password", "role", "status"); err != nil {
		return model.UserUpdate{}, err
	}

	var patch model.UserUpdate
	if v, ok := fields["email"]; ok {
		patch.Email = &v
	}
	if v, ok := fields["password"]; ok {
		patch.Password = &v
	}
	if raw, ok := fields["role"]; ok {
		role, err := parseRole(raw)
		if err != nil {
			return model.UserUpdate{}, err
		}
		patch.Role = &role
	}
	if raw, ok := fields["status"]; ok {
		status, err := parseStatus(raw)
		if err != nil {
			return model.UserUpdate{}, err
		}
		patch.Status = &status
	}
	if patch.Empty() {
		return model.UserUpdate{}, fmt.Errorf("nothing to update")
	}
	return patch, nil
}

func parseUniversity(fields map[string]string) (model.UniversityInput, error) {
	if err := checkKeys(fields, "name"); err != nil {
		return model.UniversityInput{}, err
	}
	name := strings.TrimSpace(fields["name"])
	if name == "" {
		return model.UniversityInput{}, fmt.Errorf("name is required")
	}
	return model.UniversityInput{Name: name}, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
