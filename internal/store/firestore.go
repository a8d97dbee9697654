package store

import (
	"context"
	"fmt"

	"confidentpicks/automation/internal/models"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// knownFields are the document keys mapped onto models.Pick
var knownFields = map[string]bool{
	"id": true, "sport": true, "league": true, "gameId": true, "awayTeam": true,
	"homeTeam": true, "gameTime": true, "marketType": true, "pick": true, "pickDesc": true,
	"modelConfidence": true, "odds": true, "status": true, "tier": true, "riskTag": true,
	"reasoning": true, "source": true, "createdAt": true, "updatedAt": true,
	"result": true, "actualResult": true, "actualTotal": true,
}

// Firestore stores picks in Firestore collections
type Firestore struct {
	client *firestore.Client
}

// NewFirestore connects to the Firestore database of a project
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	log.Info().Str("project", projectID).Msg("Firestore connection established")

	return &Firestore{client: client}, nil
}

// NewFirestoreFromClient wraps an existing client
func NewFirestoreFromClient(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

// Close closes the underlying client
func (f *Firestore) Close() error {
	return f.client.Close()
}

// List returns every pick in a collection
func (f *Firestore) List(ctx context.Context, collection string) ([]*models.Pick, error) {
	docs, err := f.client.Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	picks := make([]*models.Pick, 0, len(docs))
	for _, doc := range docs {
		var pick models.Pick
		if err := doc.DataTo(&pick); err != nil {
			log.Warn().
				Err(err).
				Str("collection", collection).
				Str("doc", doc.Ref.ID).
				Msg("Failed to decode pick, skipping")
			continue
		}
		if pick.ID == "" {
			pick.ID = doc.Ref.ID
		}
		pick.Extra = extraFields(doc.Data())
		picks = append(picks, &pick)
	}

	return picks, nil
}

// Upsert merges picks into a collection
func (f *Firestore) Upsert(ctx context.Context, collection string, picks []*models.Pick) error {
	writes := make([]write, 0, len(picks))
	for _, p := range picks {
		writes = append(writes, write{
			ref:   f.client.Collection(collection).Doc(p.ID),
			data:  toFirestoreMap(p),
			merge: true,
		})
	}
	return f.commit(ctx, writes)
}

// Move writes each pick to its destination and deletes the source document.
// Both writes of a move always land in the same batch.
func (f *Firestore) Move(ctx context.Context, moves []Move) error {
	writes := make([]write, 0, len(moves)*2)
	for i, m := range moves {
		if err := m.validate(); err != nil {
			return fmt.Errorf("failed to move pick: %w", err)
		}
		writes = append(writes,
			write{ref: f.client.Collection(m.To).Doc(m.Pick.ID), data: toFirestoreMap(m.Pick), group: i + 1},
			write{ref: f.client.Collection(m.From).Doc(m.Pick.ID), delete: true, group: i + 1},
		)
	}
	return f.commit(ctx, writes)
}

// write is one pending batch operation. Writes sharing a non-zero group are
// committed in the same batch.
type write struct {
	ref    *firestore.DocumentRef
	data   map[string]interface{}
	merge  bool
	delete bool
	group  int
}

// chunkWrites splits writes into chunks of at most limit writes without
// splitting a group across chunks.
func chunkWrites(writes []write, limit int) [][]write {
	var chunks [][]write
	for start := 0; start < len(writes); {
		end := start + limit
		if end >= len(writes) {
			end = len(writes)
		} else {
			cut := end
			for cut > start && writes[cut].group != 0 && writes[cut].group == writes[cut-1].group {
				cut--
			}
			if cut > start {
				end = cut
			}
		}
		chunks = append(chunks, writes[start:end])
		start = end
	}
	return chunks
}

// commit sends writes in batches of at most MaxBatchWrites
func (f *Firestore) commit(ctx context.Context, writes []write) error {
	for _, chunk := range chunkWrites(writes, MaxBatchWrites) {
		batch := f.client.Batch()
		for _, w := range chunk {
			switch {
			case w.delete:
				batch.Delete(w.ref)
			case w.merge:
				batch.Set(w.ref, w.data, firestore.MergeAll)
			default:
				batch.Set(w.ref, w.data)
			}
		}

		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit batch of %d writes: %w", len(chunk), err)
		}

		log.Debug().
			Int("writes", len(chunk)).
			Msg("Committed Firestore batch")
	}
	return nil
}

// toFirestoreMap renders a pick as document data. Grading fields are left
// out until set so merges keep an existing result.
func toFirestoreMap(p *models.Pick) map[string]interface{} {
	data := make(map[string]interface{}, len(knownFields)+len(p.Extra))
	for k, v := range p.Extra {
		if !knownFields[k] {
			data[k] = v
		}
	}

	data["id"] = p.ID
	data["sport"] = p.Sport
	data["league"] = p.League
	data["gameId"] = p.GameID
	data["awayTeam"] = p.AwayTeam
	data["homeTeam"] = p.HomeTeam
	data["gameTime"] = p.GameTime
	data["marketType"] = string(p.MarketType)
	data["pick"] = p.Pick
	data["pickDesc"] = p.PickDesc
	data["modelConfidence"] = p.ModelConfidence
	data["odds"] = p.Odds
	data["status"] = string(p.Status)
	data["tier"] = p.Tier
	data["riskTag"] = p.RiskTag
	data["reasoning"] = p.Reasoning
	data["source"] = p.Source
	data["createdAt"] = p.CreatedAt
	data["updatedAt"] = p.UpdatedAt

	if p.Result != "" {
		data["result"] = string(p.Result)
	}
	if p.ActualResult != nil {
		data["actualResult"] = map[string]interface{}{
			"awayScore": p.ActualResult.AwayScore,
			"homeScore": p.ActualResult.HomeScore,
			"winner":    p.ActualResult.Winner,
		}
	}
	if p.ActualTotal != nil {
		data["actualTotal"] = *p.ActualTotal
	}

	return data
}

func extraFields(data map[string]interface{}) map[string]interface{} {
	var extra map[string]interface{}
	for k, v := range data {
		if knownFields[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]interface{})
		}
		extra[k] = v
	}
	return extra
}
