package qdrantDB

import (
	"time"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/qdrant/go-client/qdrant"
)

const (
	fieldDocumentId     = "document_id"
	fieldChunkId        = "chunk_id"
	fieldContent        = "content"
	fieldFilename       = "filename"
	fieldExtension      = "extension"
	fieldSourceType     = "source_type"
	fieldChunkIndex     = "chunk_index"
	fieldTotalChunks    = "total_chunks"
	fieldPageNum        = "page_num"
	fieldRowNum         = "row_num"
	fieldTableName      = "table_name"
	fieldRowCount       = "row_count"
	fieldRecovery       = "recovery_method"
	fieldVisionAnalyzed = "vision_analyzed"
	fieldIngestedAt     = "ingested_at"
)

// chunkPayload leaves page_num out when the chunk has no page so filters can tell the two apart.
func chunkPayload(chunk commonModels.DocChunk) map[string]*qdrant.Value {
	payload := map[string]any{
		fieldDocumentId:     chunk.DocumentId,
		fieldChunkId:        chunk.ChunkId,
		fieldContent:        chunk.Chunk,
		fieldFilename:       chunk.Filename,
		fieldExtension:      chunk.Extension,
		fieldSourceType:     string(chunk.SourceType),
		fieldChunkIndex:     int64(chunk.Index),
		fieldTotalChunks:    int64(chunk.TotalChunks),
		fieldRowNum:         int64(chunk.RowNum),
		fieldTableName:      chunk.TableName,
		fieldRowCount:       int64(chunk.RowCount),
		fieldRecovery:       string(chunk.Recovery),
		fieldVisionAnalyzed: chunk.VisionAnalyzed,
		fieldIngestedAt:     chunk.IngestedAt.Unix(),
	}
	if chunk.PageNum > 0 {
		payload[fieldPageNum] = int64(chunk.PageNum)
	}
	return qdrant.NewValueMap(payload)
}

func payloadChunk(p map[string]*qdrant.Value) commonModels.DocChunk {
	return commonModels.DocChunk{
		ChunkId:        p[fieldChunkId].GetStringValue(),
		DocumentId:     p[fieldDocumentId].GetStringValue(),
		Chunk:          p[fieldContent].GetStringValue(),
		Index:          int(p[fieldChunkIndex].GetIntegerValue()),
		TotalChunks:    int(p[fieldTotalChunks].GetIntegerValue()),
		Filename:       p[fieldFilename].GetStringValue(),
		Extension:      p[fieldExtension].GetStringValue(),
		SourceType:     commonModels.SourceType(p[fieldSourceType].GetStringValue()),
		PageNum:        int(p[fieldPageNum].GetIntegerValue()),
		RowNum:         int(p[fieldRowNum].GetIntegerValue()),
		TableName:      p[fieldTableName].GetStringValue(),
		RowCount:       int(p[fieldRowCount].GetIntegerValue()),
		Recovery:       commonModels.RecoveryMethod(p[fieldRecovery].GetStringValue()),
		VisionAnalyzed: p[fieldVisionAnalyzed].GetBoolValue(),
		IngestedAt:     time.Unix(p[fieldIngestedAt].GetIntegerValue(), 0).UTC(),
	}
}

// documentFilter matches any of the ids. nil means no restriction.
func documentFilter(documentIds []string) *qdrant.Filter {
	if len(documentIds) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatchKeywords(fieldDocumentId, documentIds...)}}
}

// termFilter matches chunks containing at least one of the terms, inside the document scope.
func termFilter(documentIds []string, terms []string) *qdrant.Filter {
	filter := documentFilter(documentIds)
	if filter == nil {
		filter = &qdrant.Filter{}
	}
	for _, t := range terms {
		filter.Should = append(filter.Should, qdrant.NewMatchText(fieldContent, t))
	}
	return filter
}
