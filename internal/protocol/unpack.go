package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var clientSchemas = map[Kind]string{
	KindSay:            "say.schema.json",
	KindCallVote:       "callvote.schema.json",
	KindVote:           "vote.schema.json",
	KindSetTeam:        "setteam.schema.json",
	KindChangeInfo:     "info.schema.json",
	KindStartInfo:      "info.schema.json",
	KindEmoticon:       "emoticon.schema.json",
	KindKill:           "empty.schema.json",
	KindIsRace:         "empty.schema.json",
	KindRaceShowOthers: "showothers.schema.json",
}

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		out := map[string]*jsonschema.Schema{}
		for _, name := range clientSchemas {
			if _, ok := out[name]; ok {
				continue
			}
			b, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				compileErr = err
				return
			}
			if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
				compileErr = fmt.Errorf("schema %s: %w", name, err)
				return
			}
			s, err := c.Compile(name)
			if err != nil {
				compileErr = fmt.Errorf("schema %s: %w", name, err)
				return
			}
			out[name] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// Unpack validates the payload of a client message against its schema and
// decodes it into the matching struct. Empty payloads are treated as {}.
func Unpack(kind Kind, data []byte) (any, error) {
	name, ok := clientSchemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	all, err := schemas()
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := all[name].Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var v any
	switch kind {
	case KindSay:
		v = &SayMsg{}
	case KindCallVote:
		v = &CallVoteMsg{}
	case KindVote:
		v = &VoteMsg{}
	case KindSetTeam:
		v = &SetTeamMsg{}
	case KindChangeInfo, KindStartInfo:
		v = &InfoMsg{}
	case KindEmoticon:
		v = &EmoticonMsg{}
	case KindKill:
		v = &KillMsg{}
	case KindIsRace:
		v = &IsRaceMsg{}
	case KindRaceShowOthers:
		v = &RaceShowOthersMsg{}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}
