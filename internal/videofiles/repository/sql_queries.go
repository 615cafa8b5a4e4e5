package repository

const (
	createVideoQuery = `INSERT INTO videos (id, title, description, original_filename, status, visibility, page_id)
					VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING *`
	createJobQuery = `INSERT INTO transcode_jobs (video_id, status) VALUES ($1, 'queued') RETURNING *`
	getVideosQuery = `SELECT id, title, description, original_filename, duration_seconds, status, visibility, page_id, created_at, updated_at
					FROM videos ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	getTotalVideosQuery = `SELECT COUNT(id) FROM videos`
	getVideoByIDQuery   = `SELECT id, title, description, original_filename, duration_seconds, status, visibility, page_id, created_at, updated_at
					FROM videos WHERE id = $1`
	updateVideoQuery = `UPDATE videos
					SET title = $1, description = $2, visibility = $3, page_id = $4, updated_at = now()
					WHERE id = $5 RETURNING *`
	setDurationQuery    = `UPDATE videos SET duration_seconds = $1, updated_at = now() WHERE id = $2`
	setVideoStatusQuery = `UPDATE videos SET status = $1, updated_at = now() WHERE id = $2`
	deleteVideoQuery    = `DELETE FROM videos WHERE id = $1`

	getVariantsQuery = `SELECT id, video_id, quality, width, height, bitrate, file_path, file_size_bytes, created_at
					FROM video_variants WHERE video_id = $1 ORDER BY height DESC`
	upsertVariantQuery = `INSERT INTO video_variants (video_id, quality, width, height, bitrate, file_path, file_size_bytes)
					VALUES ($1, $2, $3, $4, $5, $6, $7)
					ON CONFLICT (video_id, quality) DO UPDATE
					SET width = EXCLUDED.width,
					    height = EXCLUDED.height,
					    bitrate = EXCLUDED.bitrate,
					    file_path = EXCLUDED.file_path,
					    file_size_bytes = EXCLUDED.file_size_bytes
					RETURNING *`
	deleteVariantsQuery = `DELETE FROM video_variants WHERE video_id = $1`
	countVariantsQuery  = `SELECT COUNT(id) FROM video_variants WHERE video_id = $1`

	getJobQuery   = `SELECT * FROM transcode_jobs WHERE video_id = $1`
	claimJobQuery = `UPDATE transcode_jobs
					SET status = 'processing', progress = 0, error_message = NULL,
					    attempts = attempts + 1, started_at = now(), completed_at = NULL
					WHERE video_id = $1 RETURNING *`
	updateProgressQuery = `UPDATE transcode_jobs SET progress = GREATEST(progress, $1) WHERE video_id = $2`
	completeJobQuery    = `UPDATE transcode_jobs
					SET status = 'completed', progress = 100, error_message = NULL, completed_at = now()
					WHERE video_id = $1`
	failJobQuery = `UPDATE transcode_jobs
					SET status = 'failed', error_message = $1, completed_at = now()
					WHERE video_id = $2`
	requeueJobQuery = `INSERT INTO transcode_jobs (video_id, status) VALUES ($1, 'queued')
					ON CONFLICT (video_id) DO UPDATE
					SET status = 'queued', progress = 0, error_message = NULL, started_at = NULL, completed_at = NULL
					RETURNING *`

	createSubtitleQuery = `INSERT INTO subtitles (video_id, language, label, file_path, is_default)
					VALUES ($1, $2, $3, $4, $5) RETURNING *`
	getSubtitlesQuery = `SELECT id, video_id, language, label, file_path, is_default, created_at
					FROM subtitles WHERE video_id = $1 ORDER BY is_default DESC, language`
	getSubtitleQuery = `SELECT id, video_id, language, label, file_path, is_default, created_at
					FROM subtitles WHERE video_id = $1 AND id = $2`
	clearDefaultSubtitleQuery = `UPDATE subtitles SET is_default = FALSE WHERE video_id = $1 AND is_default`
	setDefaultSubtitleQuery   = `UPDATE subtitles SET is_default = TRUE WHERE video_id = $1 AND id = $2`
	deleteSubtitleQuery       = `DELETE FROM subtitles WHERE video_id = $1 AND id = $2`
)
