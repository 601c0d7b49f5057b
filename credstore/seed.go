package credstore

import (
	"context"
	"io"
	"os"

	"github.com/jrsteele09/go-token-server/users"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout accepted by Seed.
//
//	users:
//	  - id: 7
//	    username: alice
//	    password: correct
//	    role: User
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

// SeedUser is a record in a seed file. When Hash is true the plain password is
// bcrypt-hashed before it is stored.
type SeedUser struct {
	users.User `yaml:",inline"`
	Hash       bool `yaml:"hash"`
}

// Seed reads a YAML seed document and upserts every record into w.
// It returns the number of records written.
func Seed(ctx context.Context, w UserWriter, r io.Reader) (int, error) {
	var file SeedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "[Seed] decode")
	}

	seen := make(map[int64]struct{}, len(file.Users))
	for i, su := range file.Users {
		if su.ID <= 0 {
			return i, errors.Errorf("[Seed] record %d: id must be positive", i)
		}
		if _, dup := seen[su.ID]; dup {
			return i, errors.Errorf("[Seed] record %d: duplicate id %d", i, su.ID)
		}
		seen[su.ID] = struct{}{}

		user := su.User
		if su.Hash {
			hash, err := users.HashPassword(user.Password)
			if err != nil {
				return i, errors.Wrapf(err, "[Seed] record %d: hash password", i)
			}
			user.Password = hash
		}
		if err := w.UpsertUser(ctx, &user); err != nil {
			return i, errors.Wrapf(err, "[Seed] record %d: upsert", i)
		}
	}
	return len(file.Users), nil
}

// SeedFromFile opens path and seeds w from it.
func SeedFromFile(ctx context.Context, w UserWriter, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "[SeedFromFile] open")
	}
	defer f.Close()
	return Seed(ctx, w, f)
}
