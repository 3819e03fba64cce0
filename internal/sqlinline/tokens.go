package sqlinline

const QInsertToken = `--sql 28b163a6-df07-423d-ba8b-eeea6f717738
insert into verification_tokens (token, email, issued_at, expires_at)
values (?, ?, ?, ?);
`

const QSelectToken = `--sql 2ab70cbb-c2dc-4a71-886f-8a2f929f2faa
select token, email, issued_at, expires_at, consumed_at
from verification_tokens
where token = ?;
`

// QConsumeToken only touches unconsumed rows; zero rows affected means the
// token was already used.
const QConsumeToken = `--sql b5a646e6-31b4-4901-862e-279da121059b
update verification_tokens
set consumed_at = ?
where token = ? and consumed_at is null;
`

const QCountTokensIssuedSince = `--sql f60026a4-bca5-4df6-9308-253cfd6c22ed
select count(*)
from verification_tokens
where email = ? and issued_at > ?;
`

// QDeleteExpiredTokens keeps rows still counted by QCountTokensIssuedSince.
const QDeleteExpiredTokens = `--sql d7596fc5-587b-45b1-88da-518d503d7c87
delete from verification_tokens
where expires_at < ? and issued_at <= ?;
`
