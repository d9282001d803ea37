package protocol

// This package implements parsing and serialising of the Asterisk Manager
// Interface (AMI) wire protocol that amictl uses to talk to a telephony server.
//
// The protocol is
//
// - line oriented, lines are `\r\n` delimited
// - made of `Key: Value` fields, grouped into messages that end in a blank line
// - asynchronous, the server pushes events whenever it likes
//
// - `Action` - A client instruction to the manager.
// - `Response` - The manager's reply to a single action.
// - `Event` - An unsolicited notification from the manager.
//
// === Banner
//
// As soon as the connection is open the server sends a single line identifying
// itself, there is no blank line after it.
//
//   ```
//   < Asterisk Call Manager/5.0.1\r\n
//   ```
//
// === Actions and responses
//
// As events can interleave with responses every action carries an ActionID,
// which the server echoes back in its response. The ActionID is an opaque token
// so the client can construct it however it likes.
//
//   ```
//   > Action: Ping\r\n
//   > ActionID: 42\r\n
//   > \r\n
//   < Response: Success\r\n
//   < ActionID: 42\r\n
//   < Ping: Pong\r\n
//   < \r\n
//   ```
//
// The Response field is one of Success, Error, Follows, Goodbye or Pong.
//
// === Command output
//
// A `Response: Follows` message is followed by free text, which can itself
// contain blank lines. It ends with a sentinel line instead.
//
//   ```
//   > Action: Command\r\n
//   > ActionID: 43\r\n
//   > Command: core show uptime\r\n
//   > \r\n
//   < Response: Follows\r\n
//   < Privilege: Command\r\n
//   < ActionID: 43\r\n
//   < System uptime: 2 hours, 1 minute\r\n
//   < --END COMMAND--\r\n
//   < \r\n
//   ```
//
// Anything in a message that isn't a `Key: Value` line ends up in the field with
// the empty name, see UnparsedKey.
//
// === Events
//
//   ```
//   < Event: Hangup\r\n
//   < Privilege: call,all\r\n
//   < Channel: SIP/1000-00000001\r\n
//   < Cause: 16\r\n
//   < \r\n
//   ```
//
// === Login
//
// Login either sends the secret in the clear, or first asks for a challenge
// and sends md5(challenge + secret) as the Key.
//
//   ```
//   > Action: Challenge\r\n
//   > AuthType: MD5\r\n
//   < Response: Success\r\n
//   < Challenge: 840415273\r\n
//   > Action: Login\r\n
//   > Username: admin\r\n
//   > AuthType: MD5\r\n
//   > Key: <hex digest>\r\n
//   ```
//
