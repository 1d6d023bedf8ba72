package redis

const (
	// appendStartScript atomically stores a start record, indexes it under
	// its owner and notifies live subscribers.
	appendStartScript = `
local record_key = KEYS[1]     -- daygauge:start:{id}
local owner_key = KEYS[2]      -- daygauge:starts:{owner}
local channel = KEYS[3]        -- daygauge:starts:{owner}:changed

local id = ARGV[1]
local owner = ARGV[2]
local start = ARGV[3]
local created = ARGV[4]
local score = ARGV[5]

-- Records are never mutated once written
if redis.call('EXISTS', record_key) == 1 then
  return redis.error_reply('record exists')
end

redis.call('HSET', record_key,
  'id', id,
  'owner', owner,
  'start', start,
  'created', created
)

redis.call('ZADD', owner_key, score, id)
redis.call('PUBLISH', channel, id)

return 'OK'
`
)
